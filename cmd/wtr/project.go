package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/projector"
)

var (
	projectRepo         string
	projectDataWindow   int
	projectWindowDays   int
	projectUpdateTable  string
	projectForceRefresh bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Build per-engineer metrics in the relational mart",
	Long: `Read the indexed PRs for a repository and project them into the mart:
author records, daily activity, rolling window metrics (7/30/90 days
plus all time), file ownership, and per-author PR lists.

The projection is skipped when metrics already exist for the repository
unless --force-refresh is given.

Example:
  wtr project --repo expressjs/express --data-window-days 365`,
	RunE: runProject,
}

func init() {
	projectCmd.Flags().StringVar(&projectRepo, "repo", "", "repository (owner/repo) to project")
	projectCmd.Flags().IntVar(&projectDataWindow, "data-window-days", 365, "how far back to read PRs")
	projectCmd.Flags().IntVar(&projectWindowDays, "window-days", 0, "project a single metrics window (0 = all)")
	projectCmd.Flags().StringVar(&projectUpdateTable, "update-table", projector.TableAll,
		"write only one mart table (authors, author_metrics_daily, author_metrics_window, author_prs_window, author_file_ownership, all)")
	projectCmd.Flags().BoolVar(&projectForceRefresh, "force-refresh", false, "recompute even if metrics exist")
	projectCmd.MarkFlagRequired("repo")
}

func runProject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if projectWindowDays != 0 && !projector.ValidWindow(projectWindowDays) {
		return fmt.Errorf("--window-days must be one of %v", projector.Windows)
	}
	if !projector.ValidTable(projectUpdateTable) {
		return fmt.Errorf("unknown --update-table %q", projectUpdateTable)
	}

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
	opts := projector.EngineerOptions{
		DataWindowDays: projectDataWindow,
		Force:          projectForceRefresh,
		WindowDays:     projectWindowDays,
		Table:          projectUpdateTable,
	}
	if err := p.ProjectEngineer(ctx, projectRepo, opts); err != nil {
		return fmt.Errorf("engineer projection failed: %w", err)
	}

	fmt.Printf("Engineer metrics projected for %s\n", projectRepo)
	return nil
}
