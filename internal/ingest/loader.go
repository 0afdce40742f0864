package ingest

import (
	"context"
	"log/slog"

	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Loader embeds archived PRs and writes them to the vector store.
type Loader struct {
	store   *vectorstore.Store
	gateway *llm.Gateway
	logger  *slog.Logger
}

// NewLoader creates a loader over store and gateway.
func NewLoader(store *vectorstore.Store, gateway *llm.Gateway) *Loader {
	return &Loader{
		store:   store,
		gateway: gateway,
		logger:  logging.Component("loader"),
	}
}

// Load upserts every PR of the archive: one embedding per PR row, one
// per file row, then an atomic per-PR upsert. The PR row becomes
// visible only with all its file rows. A failed PR is logged and
// skipped so one bad record cannot sink a load.
func (l *Loader) Load(ctx context.Context, archive *models.Archive) error {
	loaded, failed := 0, 0
	for i := range archive.PullRequests {
		pr := &archive.PullRequests[i]
		if err := l.loadPR(ctx, pr); err != nil {
			if ctx.Err() != nil {
				return err
			}
			l.logger.Warn("PR load failed, skipping",
				"repo", pr.RepoName, "pr", pr.PRNumber, "error", err)
			failed++
			continue
		}
		loaded++
	}
	l.logger.Info("archive load complete",
		"repo", archive.Summary.RepoName, "loaded", loaded, "failed", failed)
	return nil
}

func (l *Loader) loadPR(ctx context.Context, pr *models.EnrichedPR) error {
	prRow := vectorstore.BuildPRRow(pr)
	prRow.Vector = l.gateway.Embed(ctx, vectorstore.PREmbeddingText(pr))

	fileRows := make([]models.FileRow, 0, len(pr.Files))
	for i := range pr.Files {
		row := vectorstore.BuildFileRow(pr, &pr.Files[i])
		row.Vector = l.gateway.Embed(ctx, vectorstore.FileEmbeddingText(pr, &pr.Files[i]))
		fileRows = append(fileRows, row)
	}

	return l.store.UpsertPR(ctx, prRow, fileRows)
}
