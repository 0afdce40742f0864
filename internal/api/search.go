package api

import (
	"net/http"
	"strconv"

	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// handleSearch answers natural-language queries. Backend failures
// degrade to an empty result list with a server-side log so the UI
// never sees a broken search box.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	repo := r.URL.Query().Get("repo_name")
	limit := queryInt(r, "limit", 10)

	resp, err := s.services.Execute(r.Context(), repo, query, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "repo", repo, "error", err)
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// prDetails is the response of /api/pr-details: the PR row plus its
// file rows.
type prDetails struct {
	PR    models.PRRow     `json:"pr"`
	Files []models.FileRow `json:"files"`
}

// prDetailsQuery is the parsed parameter set of /api/pr-details: repo
// (repo_name accepted as an alternate) plus pr_id, with pr_number as a
// fallback lookup key.
type prDetailsQuery struct {
	repo     string
	prID     int64
	prNumber int
}

func parsePRDetailsQuery(r *http.Request) (prDetailsQuery, bool) {
	q := prDetailsQuery{
		repo:     r.URL.Query().Get("repo"),
		prID:     queryInt64(r, "pr_id", 0),
		prNumber: queryInt(r, "pr_number", 0),
	}
	if q.repo == "" {
		q.repo = r.URL.Query().Get("repo_name")
	}
	return q, q.repo != "" && (q.prID > 0 || q.prNumber > 0)
}

// filter narrows to the PR: by pr_id when given, else by pr_number.
func (q prDetailsQuery) filter() vectorstore.Filter {
	if q.prID > 0 {
		return vectorstore.And(
			vectorstore.Eq("repo_name", q.repo),
			vectorstore.Eq("pr_id", q.prID))
	}
	return vectorstore.And(
		vectorstore.Eq("repo_name", q.repo),
		vectorstore.Eq("pr_number", q.prNumber))
}

func (s *Server) handlePRDetails(w http.ResponseWriter, r *http.Request) {
	q, ok := parsePRDetailsQuery(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "repo and pr_id (or pr_number) parameters are required")
		return
	}

	prs, err := s.store.QueryPRs(r.Context(), q.filter())
	if err != nil {
		s.logger.Error("pr detail lookup failed", "repo", q.repo, "pr_id", q.prID, "pr", q.prNumber, "error", err)
		s.writeError(w, http.StatusInternalServerError, "pr lookup failed")
		return
	}
	if len(prs) == 0 {
		s.writeError(w, http.StatusNotFound, "pr not found")
		return
	}

	files, err := s.store.QueryFiles(r.Context(), q.filter())
	if err != nil {
		s.logger.Warn("pr file lookup failed", "repo", q.repo, "pr", prs[0].PRNumber, "error", err)
		files = nil
	}
	if files == nil {
		files = []models.FileRow{}
	}

	s.writeJSON(w, http.StatusOK, prDetails{PR: prs[0], Files: files})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(r *http.Request, name string, fallback int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
