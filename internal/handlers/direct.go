package handlers

import (
	"context"
	"sort"

	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// SortBy selects the ordering of a PR list.
type SortBy string

const (
	SortRecency  SortBy = "recency"
	SortLargest  SortBy = "largest"
	SortRiskiest SortBy = "riskiest"
)

// ListOptions narrows and shapes a PR list query.
type ListOptions struct {
	Author   string
	PRNumber int
	Limit    int
	SortBy   SortBy
}

// PRSummaryTotals are the aggregate counters returned alongside a PR
// list, computed over the full deduplicated result set, not the
// truncated page.
type PRSummaryTotals struct {
	PRsMerged       int   `json:"prs_merged"`
	FeaturesShipped int   `json:"features_shipped"`
	HighRiskPRs     int   `json:"high_risk_prs"`
	Start           int64 `json:"start"`
	End             int64 `json:"end"`
}

// ListPRs returns merged PRs in the window with summary totals.
func (s *Services) ListPRs(ctx context.Context, repo string, start, end int64, opts ListOptions) ([]models.PRRow, PRSummaryTotals, error) {
	filters := []vectorstore.Filter{
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("is_merged", true),
		vectorstore.Eq("repo_name", repo),
	}
	if opts.Author != "" {
		filters = append(filters, vectorstore.Eq("author_name", opts.Author))
	}
	if opts.PRNumber > 0 {
		filters = append(filters, vectorstore.Eq("pr_number", opts.PRNumber))
	}

	rows, err := s.store.QueryPRs(ctx, vectorstore.And(filters...))
	if err != nil {
		return nil, PRSummaryTotals{}, err
	}
	rows = dedupePRRows(rows)

	switch opts.SortBy {
	case SortRiskiest:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].RiskScore > rows[j].RiskScore
		})
	case SortLargest:
		sort.SliceStable(rows, func(i, j int) bool {
			return totalChanges(&rows[i]) > totalChanges(&rows[j])
		})
	default:
		sortByMergedDesc(rows)
	}

	totals := PRSummaryTotals{PRsMerged: len(rows), Start: start, End: end}
	for i := range rows {
		if hasFeature(&rows[i]) {
			totals.FeaturesShipped++
		}
		if rows[i].HighRisk {
			totals.HighRiskPRs++
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return truncateRows(rows, limit), totals, nil
}

func totalChanges(r *models.PRRow) int {
	return r.Additions + r.Deletions + r.ChangedFiles
}

// ListFeatures returns merged PRs classified as features, newest first.
func (s *Services) ListFeatures(ctx context.Context, repo string, start, end int64, author string, limit int) ([]models.PRRow, error) {
	filters := []vectorstore.Filter{
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("is_merged", true),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Ne("feature", ""),
	}
	if author != "" {
		filters = append(filters, vectorstore.Eq("author_name", author))
	}

	rows, err := s.store.QueryPRs(ctx, vectorstore.And(filters...))
	if err != nil {
		return nil, err
	}
	rows = dedupePRRows(rows)

	// Blank-but-nonempty feature strings slip past the scalar filter.
	features := rows[:0]
	for _, r := range rows {
		if hasFeature(&r) {
			features = append(features, r)
		}
	}
	sortByMergedDesc(features)

	if limit <= 0 {
		limit = DefaultListLimit
	}
	return truncateRows(features, limit), nil
}

// TopFile is the file that accumulated the most changed lines.
type TopFile struct {
	FileID            string `json:"file_id"`
	FilePath          string `json:"file_path"`
	TotalLinesChanged int    `json:"total_lines_changed"`
	PRCount           int    `json:"pr_count"`
}

// TopFileByLines finds the non-binary file with the most lines changed
// in the window, or nil when no files match.
func (s *Services) TopFileByLines(ctx context.Context, repo string, start, end int64) (*TopFile, error) {
	rows, err := s.store.QueryFiles(ctx, vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Eq("is_binary", false)))
	if err != nil {
		return nil, err
	}

	type accum struct {
		lines, prs int
	}
	totals := make(map[string]*accum)
	for i := range rows {
		fileID := rows[i].FileID
		if fileID == "" {
			continue
		}
		acc, ok := totals[fileID]
		if !ok {
			acc = &accum{}
			totals[fileID] = acc
		}
		acc.lines += rows[i].LinesChanged
		acc.prs++
	}
	if len(totals) == 0 {
		return nil, nil
	}

	var top *TopFile
	for fileID, acc := range totals {
		if top == nil || acc.lines > top.TotalLinesChanged ||
			(acc.lines == top.TotalLinesChanged && fileID < top.FileID) {
			top = &TopFile{
				FileID:            fileID,
				FilePath:          fileID,
				TotalLinesChanged: acc.lines,
				PRCount:           acc.prs,
			}
		}
	}
	return top, nil
}

// AuthorCount is one entry of the per-author PR breakdown.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// RiskBuckets is a low/medium/high histogram over risk scores.
type RiskBuckets struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func (b *RiskBuckets) add(score float64) {
	switch {
	case score >= 7.0:
		b.High++
	case score >= 4.0:
		b.Medium++
	default:
		b.Low++
	}
}

// PRCountSummary is the aggregate answer to count queries.
type PRCountSummary struct {
	TotalPRs         int           `json:"total_prs"`
	MergedPRs        int           `json:"merged_prs"`
	ClosedPRs        int           `json:"closed_prs"`
	FeaturePRs       int           `json:"feature_prs"`
	HighRiskPRs      int           `json:"high_risk_prs"`
	TopAuthors       []AuthorCount `json:"top_authors"`
	RiskDistribution RiskBuckets   `json:"risk_distribution"`
	Start            int64         `json:"start"`
	End              int64         `json:"end"`
}

// PRCount aggregates PR counts and distributions for the window.
func (s *Services) PRCount(ctx context.Context, repo string, start, end int64, author string) (PRCountSummary, error) {
	filters := []vectorstore.Filter{
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
	}
	if author != "" {
		filters = append(filters, vectorstore.Eq("author_name", author))
	}

	rows, err := s.store.QueryPRs(ctx, vectorstore.And(filters...))
	if err != nil {
		return PRCountSummary{}, err
	}
	rows = dedupePRRows(rows)

	summary := PRCountSummary{TotalPRs: len(rows), Start: start, End: end}
	authorCounts := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		if r.IsMerged {
			summary.MergedPRs++
		}
		if r.IsClosed {
			summary.ClosedPRs++
		}
		if hasFeature(r) {
			summary.FeaturePRs++
		}
		if r.HighRisk {
			summary.HighRiskPRs++
		}
		name := r.AuthorName
		if name == "" {
			name = "Unknown"
		}
		authorCounts[name]++
		summary.RiskDistribution.add(r.RiskScore)
	}

	for name, count := range authorCounts {
		summary.TopAuthors = append(summary.TopAuthors, AuthorCount{Author: name, Count: count})
	}
	sort.SliceStable(summary.TopAuthors, func(i, j int) bool {
		if summary.TopAuthors[i].Count != summary.TopAuthors[j].Count {
			return summary.TopAuthors[i].Count > summary.TopAuthors[j].Count
		}
		return summary.TopAuthors[i].Author < summary.TopAuthors[j].Author
	})
	if len(summary.TopAuthors) > 5 {
		summary.TopAuthors = summary.TopAuthors[:5]
	}
	return summary, nil
}

// TopPRsByRisk returns the merged PRs with the highest risk scores.
func (s *Services) TopPRsByRisk(ctx context.Context, repo string, start, end int64, limit int) ([]models.PRRow, error) {
	rows, err := s.store.QueryPRs(ctx, vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo),
		vectorstore.Eq("is_merged", true)))
	if err != nil {
		return nil, err
	}
	rows = dedupePRRows(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RiskScore > rows[j].RiskScore
	})
	if limit <= 0 {
		limit = DefaultTopRiskPRs
	}
	return truncateRows(rows, limit), nil
}

// FileChangesReport summarizes file activity in a window.
type FileChangesReport struct {
	TotalFiles        int            `json:"total_files"`
	TotalLinesChanged int            `json:"total_lines_changed"`
	LanguageBreakdown map[string]int `json:"language_breakdown"`
	RiskBreakdown     RiskBuckets    `json:"risk_breakdown"`
	Start             int64          `json:"start"`
	End               int64          `json:"end"`
}

// FileChangesSummary aggregates totals, a language histogram, and a
// risk histogram over the file rows of the window.
func (s *Services) FileChangesSummary(ctx context.Context, repo string, start, end int64) (FileChangesReport, error) {
	rows, err := s.store.QueryFiles(ctx, vectorstore.And(
		vectorstore.Between("merged_at", start, end),
		vectorstore.Eq("repo_name", repo)))
	if err != nil {
		return FileChangesReport{}, err
	}

	report := FileChangesReport{
		LanguageBreakdown: make(map[string]int),
		Start:             start,
		End:               end,
	}
	report.TotalFiles = len(rows)
	for i := range rows {
		r := &rows[i]
		report.TotalLinesChanged += r.LinesChanged
		language := r.Language
		if language == "" {
			language = "unknown"
		}
		report.LanguageBreakdown[language]++
		report.RiskBreakdown.add(r.RiskScoreFile)
	}
	return report, nil
}
