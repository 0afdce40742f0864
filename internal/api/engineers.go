package api

import (
	"net/http"
	"sort"

	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/projector"
)

// handleEngineers lists the authors with metrics in a repository.
func (s *Server) handleEngineers(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		s.writeError(w, http.StatusBadRequest, "repo parameter is required")
		return
	}

	// The all-time window covers every author who ever had activity.
	metrics, err := s.mart.GetWindowMetrics(r.Context(), repo, projector.AllTimeWindow)
	if err != nil {
		s.logger.Error("engineer listing failed", "repo", repo, "error", err)
		s.writeError(w, http.StatusInternalServerError, "engineer listing failed")
		return
	}

	known := make(map[string]mart.AuthorRow)
	if authors, err := s.mart.ListAuthors(r.Context()); err != nil {
		s.logger.Warn("author table read failed", "error", err)
	} else {
		for _, a := range authors {
			known[a.Username] = a
		}
	}

	seen := make(map[string]bool)
	engineers := make([]mart.AuthorRow, 0, len(metrics))
	for _, m := range metrics {
		if seen[m.Username] {
			continue
		}
		seen[m.Username] = true
		if a, ok := known[m.Username]; ok {
			engineers = append(engineers, a)
		} else {
			engineers = append(engineers, mart.AuthorRow{Username: m.Username, DisplayName: m.Username})
		}
	}
	sort.Slice(engineers, func(i, j int) bool { return engineers[i].Username < engineers[j].Username })

	s.writeJSON(w, http.StatusOK, engineers)
}

// engineerMetrics is the /api/engineer-metrics response.
type engineerMetrics struct {
	Username      string                  `json:"username"`
	RepoName      string                  `json:"repo_name"`
	WindowDays    int                     `json:"window_days"`
	PRsSubmitted  int                     `json:"prs_submitted"`
	PRsMerged     int                     `json:"prs_merged"`
	HighRiskPRs   int                     `json:"high_risk_prs"`
	HighRiskRate  float64                 `json:"high_risk_rate"`
	LinesChanged  int                     `json:"lines_changed"`
	FileOwnership []mart.FileOwnershipRow `json:"file_ownership"`
	Features      []mart.AuthorPRRow      `json:"features"`
}

func (s *Server) handleEngineerMetrics(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	repo := r.URL.Query().Get("repo")
	if username == "" || repo == "" {
		s.writeError(w, http.StatusBadRequest, "username and repo parameters are required")
		return
	}
	windowDays := queryInt(r, "window_days", 30)

	resp := engineerMetrics{
		Username:      username,
		RepoName:      repo,
		WindowDays:    windowDays,
		FileOwnership: []mart.FileOwnershipRow{},
		Features:      []mart.AuthorPRRow{},
	}

	metrics, err := s.mart.GetWindowMetrics(r.Context(), repo, windowDays)
	if err != nil {
		s.logger.Error("engineer metrics lookup failed",
			"repo", repo, "username", username, "error", err)
		s.writeError(w, http.StatusInternalServerError, "engineer metrics lookup failed")
		return
	}
	for _, m := range metrics {
		if m.Username != username {
			continue
		}
		resp.PRsSubmitted = m.PRsSubmitted
		resp.PRsMerged = m.PRsMerged
		resp.HighRiskPRs = m.HighRiskPRs
		resp.HighRiskRate = m.HighRiskRate
		resp.LinesChanged = m.LinesChanged
		break
	}

	if ownership, err := s.mart.GetFileOwnership(r.Context(), repo, username, windowDays); err != nil {
		s.logger.Warn("file ownership lookup failed", "username", username, "error", err)
	} else {
		if len(ownership) > 10 {
			ownership = ownership[:10]
		}
		resp.FileOwnership = ownership
	}

	if prs, err := s.mart.GetAuthorPRs(r.Context(), repo, username, windowDays); err != nil {
		s.logger.Warn("author PR lookup failed", "username", username, "error", err)
	} else {
		if len(prs) > 10 {
			prs = prs[:10]
		}
		resp.Features = prs
	}

	s.writeJSON(w, http.StatusOK, resp)
}
