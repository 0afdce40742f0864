package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Explanation runs pure ANN search over the PR rows of the window,
// closest first. Only time and repo are filtered so fuzzy questions
// reach the whole corpus.
func (s *Services) Explanation(ctx context.Context, repo string, start, end int64, query string, k int) ([]models.PRRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	filter := vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo))

	hits, err := s.store.SearchPRs(ctx, s.queryVector(ctx, query), filter, k)
	if err != nil {
		return nil, err
	}
	hits = dedupePRRows(hits)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits, nil
}

// RiskAnalysis runs ANN search over non-binary file rows, ranked by
// similarity then file risk.
func (s *Services) RiskAnalysis(ctx context.Context, repo string, start, end int64, query string, k int) ([]models.FileRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	filter := vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Eq("is_binary", false))

	files, err := s.store.SearchFiles(ctx, s.queryVector(ctx, query), filter, k)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Distance != files[j].Distance {
			return files[i].Distance < files[j].Distance
		}
		return files[i].RiskScoreFile > files[j].RiskScoreFile
	})
	return files, nil
}

// Canned explanation queries for common asks.

func (s *Services) WhyRisky(ctx context.Context, repo string, start, end int64, k int) ([]models.FileRow, error) {
	return s.RiskAnalysis(ctx, repo, start, end, "why was this risky high risk vulnerability security issues", k)
}

func (s *Services) StreamingExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "streaming real-time async concurrent parallel processing", k)
}

func (s *Services) ComplexityExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "complex complicated refactor cleanup simplify architecture design", k)
}

func (s *Services) ImpactAnalysis(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "impact effect influence change modification transformation", k)
}

func (s *Services) FeatureExplanation(ctx context.Context, repo string, start, end int64, featureTerms string, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, fmt.Sprintf("feature functionality %s implementation", featureTerms), k)
}

func (s *Services) BugExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "bug fix error issue problem crash failure defect", k)
}

func (s *Services) PerformanceExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "performance optimization speed fast slow bottleneck efficiency", k)
}

func (s *Services) SecurityExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "security vulnerability risk encryption authentication authorization", k)
}

func (s *Services) ArchitectureExplanation(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Explanation(ctx, repo, start, end, "architecture design pattern structure system organization", k)
}

// ExplainedResults pairs search hits with a composed explanation.
type ExplainedResults struct {
	Results     []models.PRRow `json:"results"`
	Explanation string         `json:"explanation"`
	Query       string         `json:"query"`
	Start       int64          `json:"start"`
	End         int64          `json:"end"`
}

// ExplainedSearch runs Explanation and asks the LLM to summarize the
// top hits. Summarization failures degrade to a canned message inside
// the gateway, never to an error.
func (s *Services) ExplainedSearch(ctx context.Context, repo string, start, end int64, query string, k int) (ExplainedResults, error) {
	results, err := s.Explanation(ctx, repo, start, end, query, k)
	if err != nil {
		return ExplainedResults{}, err
	}

	hits := make([]llm.ExplainHit, 0, explainContextSize)
	for i := range results {
		if len(hits) >= explainContextSize {
			break
		}
		hits = append(hits, llm.ExplainHit{
			PRNumber:    results[i].PRNumber,
			Title:       results[i].Title,
			PRSummary:   results[i].PRSummary,
			RiskReasons: results[i].RiskReasons,
		})
	}

	return ExplainedResults{
		Results:     results,
		Explanation: s.gateway.Explain(ctx, query, hits),
		Query:       query,
		Start:       start,
		End:         end,
	}, nil
}
