package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/router"
	"github.com/whattherepo/whattherepo/internal/timeparse"
)

// QueryResponse is the answer to one natural-language query. Exactly
// one of the result fields is populated, matching the plan.
type QueryResponse struct {
	Query  string           `json:"query"`
	Plan   router.Plan      `json:"plan"`
	Window timeparse.Window `json:"window"`

	PRs         []models.PRRow   `json:"prs,omitempty"`
	Files       []models.FileRow `json:"files,omitempty"`
	TopFile     *TopFile         `json:"top_file,omitempty"`
	Count       *PRCountSummary  `json:"count,omitempty"`
	Summary     *PRSummaryTotals `json:"summary,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

// queryWindow resolves the time window for a query. Explicit time
// expressions win; otherwise risk queries get two years, author queries
// ninety days, and everything else the wide default.
func queryWindow(query string, now time.Time) timeparse.Window {
	if timeparse.HasTimeExpression(query) && timeparse.ExtractTimeExpression(strings.ToLower(query)) != "" {
		return timeparse.ParseAt(query, now)
	}
	if timeparse.IsRiskQuery(query) {
		return timeparse.RiskWindowAt(now)
	}
	if timeparse.IsAuthorQuery(query) {
		return timeparse.AuthorWindowAt(now)
	}
	return timeparse.AllTimeWindowAt(now)
}

// Execute classifies query and runs it against repo, returning the
// shaped results. limit caps list-style results when positive.
func (s *Services) Execute(ctx context.Context, repo, query string, limit int) (QueryResponse, error) {
	return s.ExecuteAt(ctx, repo, query, limit, time.Now())
}

// ExecuteAt is Execute with an injectable clock.
func (s *Services) ExecuteAt(ctx context.Context, repo, query string, limit int, now time.Time) (QueryResponse, error) {
	plan := router.Classify(query)
	window := queryWindow(query, now)
	resp := QueryResponse{Query: query, Plan: plan, Window: window}

	s.logger.Info("executing query",
		"repo", repo,
		"route", plan.Route,
		"object", plan.Object,
		"metric", plan.Metric,
		"window_start", window.Start,
		"window_end", window.End)

	var err error
	switch plan.Route {
	case router.RouteDirect:
		err = s.executeDirect(ctx, repo, plan, window, limit, &resp)
	case router.RouteHybrid:
		err = s.executeHybrid(ctx, repo, plan, window, limit, &resp)
	default:
		err = s.executeVector(ctx, repo, plan, window, limit, &resp)
	}
	return resp, err
}

func (s *Services) executeDirect(ctx context.Context, repo string, plan router.Plan, w timeparse.Window, limit int, resp *QueryResponse) error {
	if limit <= 0 {
		limit = plan.Limit
	}

	switch {
	case plan.Object == router.ObjectFeatures:
		rows, err := s.ListFeatures(ctx, repo, w.Start, w.End, plan.Author, limit)
		resp.PRs = rows
		return err
	case plan.Object == router.ObjectFiles && plan.Metric == router.MetricTop:
		top, err := s.TopFileByLines(ctx, repo, w.Start, w.End)
		resp.TopFile = top
		return err
	case plan.Metric == router.MetricCount:
		count, err := s.PRCount(ctx, repo, w.Start, w.End, plan.Author)
		if err != nil {
			return err
		}
		resp.Count = &count
		return nil
	}

	opts := ListOptions{
		Author:   plan.Author,
		PRNumber: plan.PRNumber,
		Limit:    limit,
	}
	switch plan.Metric {
	case router.MetricRiskiest:
		opts.SortBy = SortRiskiest
	case router.MetricLargest:
		opts.SortBy = SortLargest
	default:
		opts.SortBy = SortRecency
	}

	rows, totals, err := s.ListPRs(ctx, repo, w.Start, w.End, opts)
	if err != nil {
		return err
	}
	resp.PRs = rows
	resp.Summary = &totals
	return nil
}

func (s *Services) executeHybrid(ctx context.Context, repo string, plan router.Plan, w timeparse.Window, limit int, resp *QueryResponse) error {
	terms := strings.Join(plan.SemanticTerms, " ")

	switch {
	case plan.SpecificFile != "":
		rows, err := s.FileSearch(ctx, repo, w.Start, w.End, plan.SpecificFile, limit)
		resp.PRs = rows
		return err
	case plan.Object == router.ObjectFiles:
		rows, err := s.RiskyFiles(ctx, repo, w.Start, w.End, terms, limit)
		resp.PRs = rows
		return err
	case plan.Object == router.ObjectFeatures:
		rows, err := s.Features(ctx, repo, w.Start, w.End, terms, limit)
		resp.PRs = rows
		return err
	}

	// PR-centric topic queries have no feature filter to lean on, so
	// they run as plain semantic search.
	rows, err := s.Explanation(ctx, repo, w.Start, w.End, terms, limit)
	resp.PRs = rows
	return err
}

func (s *Services) executeVector(ctx context.Context, repo string, plan router.Plan, w timeparse.Window, limit int, resp *QueryResponse) error {
	query := strings.Join(plan.SemanticTerms, " ")
	if query == "" {
		query = resp.Query
	}

	if plan.Object == router.ObjectFiles {
		files, err := s.RiskAnalysis(ctx, repo, w.Start, w.End, query, limit)
		resp.Files = files
		return err
	}

	explained, err := s.ExplainedSearch(ctx, repo, w.Start, w.End, query, limit)
	if err != nil {
		return err
	}
	resp.PRs = explained.Results
	resp.Explanation = explained.Explanation
	return nil
}
