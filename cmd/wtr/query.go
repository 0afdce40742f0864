package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	queryRepo  string
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a natural-language question about a repository",
	Long: `Classify a natural-language question, run it against the vector
store, and print the result as JSON.

Examples:
  wtr query "top 5 riskiest PRs" --repo expressjs/express
  wtr query "what auth features shipped last month" --repo expressjs/express
  wtr query "why was the payment change risky" --repo expressjs/express`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryRepo, "repo", "", "repository (owner/repo) to query")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum results (0 = route default)")
	queryCmd.MarkFlagRequired("repo")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.ValidateQuery(); err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("vector store connection failed: %w", err)
	}
	defer store.Close()

	services := newQueryServices(ctx, store, newQueryGateway())
	resp, err := services.Execute(ctx, queryRepo, args[0], queryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
