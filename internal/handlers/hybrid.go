package handlers

import (
	"context"
	"sort"

	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Features runs ANN search over merged feature PRs in the window,
// ranked by similarity then recency.
func (s *Services) Features(ctx context.Context, repo string, start, end int64, terms string, k int) ([]models.PRRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	filter := vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("is_merged", true),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Ne("feature", ""))

	hits, err := s.store.SearchPRs(ctx, s.queryVector(ctx, terms), filter, k)
	if err != nil {
		return nil, err
	}
	hits = dedupePRRows(hits)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].MergedAt > hits[j].MergedAt
	})
	return hits, nil
}

// RiskyFiles runs ANN search over non-binary file rows, then returns
// the merged PRs containing the matched files, newest first. The file
// search oversamples 2k rows to surface enough distinct PRs.
func (s *Services) RiskyFiles(ctx context.Context, repo string, start, end int64, terms string, k int) ([]models.PRRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	fileFilter := vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Eq("is_binary", false))

	files, err := s.store.SearchFiles(ctx, s.queryVector(ctx, terms), fileFilter, k*2)
	if err != nil {
		return nil, err
	}
	return s.prsForFiles(ctx, repo, start, end, files, k)
}

// FileSearch returns the merged PRs touching files whose id contains
// filename.
func (s *Services) FileSearch(ctx context.Context, repo string, start, end int64, filename string, k int) ([]models.PRRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	files, err := s.store.QueryFiles(ctx, vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Like("file_id", "%"+filename+"%")))
	if err != nil {
		return nil, err
	}
	return s.prsForFiles(ctx, repo, start, end, files, k)
}

// prsForFiles resolves file rows to their containing merged PRs.
func (s *Services) prsForFiles(ctx context.Context, repo string, start, end int64, files []models.FileRow, k int) ([]models.PRRow, error) {
	seen := make(map[int]bool)
	var prNumbers []any
	for i := range files {
		n := files[i].PRNumber
		if n > 0 && !seen[n] {
			seen[n] = true
			prNumbers = append(prNumbers, n)
		}
	}
	if len(prNumbers) == 0 {
		s.logger.Debug("no PR numbers resolved from file rows", "repo", repo)
		return nil, nil
	}

	prs, err := s.store.QueryPRs(ctx, vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Eq("is_merged", true),
		vectorstore.In("pr_number", prNumbers...)))
	if err != nil {
		return nil, err
	}
	prs = dedupePRRows(prs)
	sortByMergedDesc(prs)
	return truncateRows(prs, k), nil
}

// Topic shortcuts with fixed term bundles. Feature-flavored topics run
// through the feature search, risk-flavored topics through the file
// search.

func (s *Services) AuthFeatures(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "authentication authorization login logout security", k)
}

func (s *Services) PaymentFeatures(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "payment billing invoice transaction money", k)
}

func (s *Services) SecurityChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.RiskyFiles(ctx, repo, start, end, "security vulnerability risk encryption secure", k)
}

func (s *Services) DatabaseChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.RiskyFiles(ctx, repo, start, end, "database sql query schema migration table", k)
}

func (s *Services) APIChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "api endpoint route rest graphql webhook", k)
}

func (s *Services) TestChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "test testing tested unit integration e2e", k)
}

func (s *Services) PerformanceChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "performance optimization speed fast slow", k)
}

func (s *Services) BugFixes(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "error bug fix issue problem crash", k)
}

func (s *Services) ComplexChanges(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "complex complicated refactor cleanup simplify", k)
}

func (s *Services) StreamingFeatures(ctx context.Context, repo string, start, end int64, k int) ([]models.PRRow, error) {
	return s.Features(ctx, repo, start, end, "streaming real-time async concurrent parallel", k)
}
