package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/projector"
)

var (
	shippedRepo         string
	shippedForceRefresh bool
	shippedIncremental  bool
)

var shippedCmd = &cobra.Command{
	Use:   "shipped",
	Short: "Build the shipped-PR ledger in the relational mart",
	Long: `Flatten the indexed PRs for a repository into the denormalized
shipped-PR ledger that backs the what-shipped API endpoints.

Existing ledger rows for the repository are left alone unless
--force-refresh is given.

Example:
  wtr shipped --repo expressjs/express --force-refresh`,
	RunE: runShipped,
}

func init() {
	shippedCmd.Flags().StringVar(&shippedRepo, "repo", "", "repository (owner/repo) to project")
	shippedCmd.Flags().BoolVar(&shippedForceRefresh, "force-refresh", false, "rebuild even if ledger rows exist")
	shippedCmd.Flags().BoolVar(&shippedIncremental, "incremental", false, "only project PRs created after the newest ledger row")
	shippedCmd.MarkFlagRequired("repo")
}

func runShipped(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("vector store connection failed: %w", err)
	}
	defer store.Close()

	m, err := openMart(ctx)
	if err != nil {
		return fmt.Errorf("mart connection failed: %w", err)
	}
	defer m.Close()

	p := projector.New(store, m)
	opts := projector.ShippedOptions{
		Force:       shippedForceRefresh,
		Incremental: shippedIncremental,
	}
	if err := p.ProjectShipped(ctx, shippedRepo, opts); err != nil {
		return fmt.Errorf("shipped projection failed: %w", err)
	}

	fmt.Printf("Shipped-PR ledger built for %s\n", shippedRepo)
	return nil
}
