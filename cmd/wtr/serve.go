package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/whattherepo/whattherepo/internal/api"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API",
	Long: `Serve the read-side HTTP API: natural-language search, PR details,
the shipped-PR ledger, and per-engineer metrics.

The server runs until interrupted.

Examples:
  wtr serve
  wtr serve --addr :9090 --open`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, usually :8080)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the health endpoint in a browser after startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateQuery(); err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	services := newQueryServices(ctx, store, newQueryGateway())
	server := api.NewServer(services, store, m)

	if serveOpen {
		go func() {
			time.Sleep(500 * time.Millisecond)
			url := fmt.Sprintf("http://localhost%s/health", addr)
			if err := browser.OpenURL(url); err != nil {
				logger.WithError(err).Debug("Failed to open browser")
			}
		}()
	}

	if err := server.ListenAndServe(ctx, addr); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
