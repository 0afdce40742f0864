// Package handlers executes retrieval plans against the vector store:
// direct handlers reduce scalar query results client-side, hybrid
// handlers combine scalar filters with ANN search, and vector handlers
// serve explanation queries, optionally composing an LLM summary.
package handlers

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/whattherepo/whattherepo/internal/cache"
	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Default result caps.
const (
	DefaultListLimit   = 100
	DefaultSearchK     = 50
	DefaultTopRiskPRs  = 10
	explainContextSize = 10
)

// Store is the slice of the vector store the handlers consume.
// *vectorstore.Store satisfies it.
type Store interface {
	QueryPRs(ctx context.Context, f vectorstore.Filter) ([]models.PRRow, error)
	QueryFiles(ctx context.Context, f vectorstore.Filter) ([]models.FileRow, error)
	SearchPRs(ctx context.Context, vec []float32, f vectorstore.Filter, k int) ([]models.PRRow, error)
	SearchFiles(ctx context.Context, vec []float32, f vectorstore.Filter, k int) ([]models.FileRow, error)
}

// Services bundles the backends the handlers run against. Cache may be
// nil; embedding lookups then always hit the gateway.
type Services struct {
	store   Store
	gateway *llm.Gateway
	cache   *cache.Client
	logger  *slog.Logger
}

// New creates the handler services over store, gateway, and an optional
// embedding cache.
func New(store Store, gateway *llm.Gateway, cacheClient *cache.Client) *Services {
	return &Services{
		store:   store,
		gateway: gateway,
		cache:   cacheClient,
		logger:  logging.Component("handlers"),
	}
}

// queryVector embeds text for search, consulting the cache first. A
// cache failure falls through to the gateway.
func (s *Services) queryVector(ctx context.Context, text string) []float32 {
	key := cache.EmbeddingKey(s.gateway.EmbedModel(), text)

	var vec []float32
	hit, err := s.cache.Get(ctx, key, &vec)
	if err != nil {
		s.logger.Warn("embedding cache read failed", "error", err)
	}
	if hit && len(vec) == llm.EmbeddingDim {
		return vec
	}

	vec = s.gateway.Embed(ctx, text)
	if err := s.cache.Set(ctx, key, vec); err != nil {
		s.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec
}

// dedupePRRows drops duplicate rows, keeping the first occurrence. Rows
// are keyed by pr_id, then pr_number for rows missing an id.
func dedupePRRows(rows []models.PRRow) []models.PRRow {
	seenID := make(map[int64]bool, len(rows))
	seenNumber := make(map[int]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if r.PRID != 0 {
			if seenID[r.PRID] {
				continue
			}
			seenID[r.PRID] = true
		} else {
			if seenNumber[r.PRNumber] {
				continue
			}
			seenNumber[r.PRNumber] = true
		}
		out = append(out, r)
	}
	return out
}

func sortByMergedDesc(rows []models.PRRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MergedAt > rows[j].MergedAt
	})
}

func hasFeature(r *models.PRRow) bool {
	return strings.TrimSpace(r.Feature) != ""
}

func truncateRows(rows []models.PRRow, limit int) []models.PRRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
