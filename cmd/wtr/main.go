package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/config"
	"github.com/whattherepo/whattherepo/internal/logging"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wtr",
	Short: "WhatTheRepo - ask a repository what shipped and why",
	Long: `WhatTheRepo ingests merged pull requests from GitHub, enriches them
with LLM risk and feature assessments, and answers natural-language
questions over the result.

Typical workflow:
  wtr ingest owner/repo --output repo.json   # fetch and enrich PRs
  wtr load repo.json                         # embed and index the archive
  wtr project --repo owner/repo              # build engineer metrics
  wtr shipped --repo owner/repo              # build the shipped-PR ledger
  wtr query "riskiest PRs" --repo owner/repo # one-shot query
  wtr serve                                  # HTTP API`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		logCfg := logging.Config{
			Level:      logging.ParseLevel(cfg.Logging.Level),
			OutputFile: cfg.Logging.File,
			JSONFormat: cfg.Logging.JSON,
		}
		if verbose {
			logCfg.Level = logging.ParseLevel("debug")
			logCfg.AddSource = true
		}
		if err := logging.Initialize(logCfg); err != nil {
			logger.WithError(err).Warn("Failed to initialize structured logging")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches .whattherepo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("wtr %s (built %s, commit %s)\n", Version, BuildTime, GitCommit))

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(shippedCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
