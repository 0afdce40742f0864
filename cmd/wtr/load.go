package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/ingest"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

var loadBatchSize int

var loadCmd = &cobra.Command{
	Use:   "load [archive.json]",
	Short: "Embed an ingest archive and index it in the vector store",
	Long: `Read a JSON archive produced by 'wtr ingest', compute embeddings for
every PR and file change, and upsert them into the vector store.

Loading is idempotent: re-loading an archive overwrites the same rows.

Example:
  wtr load express.json`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", vectorstore.DefaultInsertBatch,
		"file rows per insert batch")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.ValidateQuery(); err != nil {
		return err
	}

	archive, err := ingest.LoadArchive(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(ctx, vectorstore.WithInsertBatch(loadBatchSize))
	if err != nil {
		return fmt.Errorf("vector store connection failed: %w", err)
	}
	defer store.Close()

	loader := ingest.NewLoader(store, newGateway())
	if err := loader.Load(ctx, archive); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	fmt.Printf("Indexed %d PRs from %s into the vector store\n",
		len(archive.PullRequests), archive.Summary.RepoName)
	return nil
}
