package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/enrich"
	"github.com/whattherepo/whattherepo/internal/forge"
	"github.com/whattherepo/whattherepo/internal/ingest"
)

var (
	ingestState  string
	ingestOutput string
	ingestMax    int
	ingestForce  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [owner/repo]",
	Short: "Fetch and enrich pull requests from GitHub",
	Long: `Fetch pull requests from GitHub, classify their files, run LLM risk
and feature assessments, and write the result to a JSON archive.

The archive is the handoff artifact: feed it to 'wtr load' to embed and
index it. Already-ingested PRs are skipped via a local checkpoint unless
--force is given.

Examples:
  wtr ingest expressjs/express --output express.json
  wtr ingest expressjs/express --state closed --max 200
  wtr ingest expressjs/express --force`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestState, "state", "all", "PR state to fetch: all, open, or closed")
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "", "archive output path (default <repo>.json)")
	ingestCmd.Flags().IntVar(&ingestMax, "max", 0, "maximum PRs to ingest (0 = no limit)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-enrich PRs already recorded in the checkpoint")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	repoFull := args[0]
	if !strings.Contains(repoFull, "/") {
		return fmt.Errorf("expected owner/repo, got %q", repoFull)
	}

	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	fc := forge.NewClient(cfg.Forge.Token, cfg.Forge.RateLimit)
	gateway := newGateway()
	engine := enrich.NewEngine(fc, gateway, cfg.Ingest.FileWorkers)

	checkpoint, err := ingest.OpenCheckpoint(cfg.Ingest.CheckpointPath)
	if err != nil {
		logger.WithError(err).Warn("Checkpoint unavailable, every PR will be re-enriched")
		checkpoint = nil
	} else {
		defer checkpoint.Close()
	}

	pipeline := ingest.NewPipeline(fc, engine, checkpoint)
	archive, err := pipeline.Run(ctx, repoFull, ingest.Options{
		State: ingestState,
		Max:   ingestMax,
		Force: ingestForce,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	output := ingestOutput
	if output == "" {
		output = strings.ReplaceAll(repoFull, "/", "_") + ".json"
	}
	if err := ingest.SaveArchive(output, archive); err != nil {
		return err
	}

	s := archive.Summary
	fmt.Printf("Ingested %s (run %s)\n", s.RepoName, s.RunID)
	fmt.Printf("  PRs:       %d total, %d merged, %d closed, %d open, %d skipped\n",
		s.TotalPRs, s.MergedPRs, s.ClosedPRs, s.OpenPRs, s.SkippedPRs)
	fmt.Printf("  Features:  %d\n", s.FeaturePRs)
	fmt.Printf("  High risk: %d\n", s.HighRiskPRs)
	fmt.Printf("  Files:     %d (+%d/-%d lines)\n", s.TotalFiles, s.LinesAdded, s.LinesDeleted)
	fmt.Printf("Archive written to %s\n", output)
	return nil
}
