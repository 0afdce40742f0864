package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/whattherepo/whattherepo/internal/mart"
)

// featureRuleExcluded marks ledger rows the classifier rejected.
const featureRuleExcluded = "excluded"

// shippedFetchLimit bounds how many ledger rows a shipped endpoint
// reads before client-side filtering.
const shippedFetchLimit = 1000

func shippedWindowCutoff(timeWindow string, now time.Time) (time.Time, bool) {
	days, ok := map[string]int{"7d": 7, "30d": 30, "90d": 90}[timeWindow]
	if !ok {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}

func (s *Server) shippedRows(r *http.Request, repo, timeWindow string) ([]mart.RepoPRRow, error) {
	rows, err := s.mart.GetRepoPRs(r.Context(), repo, shippedFetchLimit)
	if err != nil {
		return nil, err
	}
	cutoff, bounded := shippedWindowCutoff(timeWindow, time.Now())
	if !bounded {
		return rows, nil
	}
	filtered := rows[:0]
	for _, row := range rows {
		if row.MergedAt != nil && row.MergedAt.After(cutoff) {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func (s *Server) handleWhatShippedData(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		s.writeError(w, http.StatusBadRequest, "repo parameter is required")
		return
	}
	timeWindow := r.URL.Query().Get("time_window")
	if timeWindow == "" {
		timeWindow = "30d"
	}
	author := r.URL.Query().Get("author")
	riskLevel := r.URL.Query().Get("risk_level")
	featureOnly := r.URL.Query().Get("feature_only") == "true"
	limit := queryInt(r, "limit", 50)

	rows, err := s.shippedRows(r, repo, timeWindow)
	if err != nil {
		s.logger.Error("shipped data lookup failed", "repo", repo, "error", err)
		s.writeError(w, http.StatusInternalServerError, "shipped data lookup failed")
		return
	}

	filtered := make([]mart.RepoPRRow, 0, len(rows))
	for _, row := range rows {
		if author != "" && row.Author != author {
			continue
		}
		switch riskLevel {
		case "high":
			if !row.HighRisk {
				continue
			}
		case "medium":
			if row.HighRisk || row.RiskScore < 4.0 {
				continue
			}
		case "low":
			if row.RiskScore >= 4.0 {
				continue
			}
		}
		if featureOnly && row.FeatureRule == featureRuleExcluded {
			continue
		}
		filtered = append(filtered, row)
		if len(filtered) >= limit {
			break
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"data":  filtered,
		"total": len(filtered),
		"filters": map[string]any{
			"repo":         repo,
			"time_window":  timeWindow,
			"author":       author,
			"risk_level":   riskLevel,
			"feature_only": featureOnly,
		},
	})
}

type authorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

func (s *Server) handleWhatShippedSummary(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		s.writeError(w, http.StatusBadRequest, "repo parameter is required")
		return
	}
	timeWindow := r.URL.Query().Get("time_window")
	if timeWindow == "" {
		timeWindow = "30d"
	}

	rows, err := s.shippedRows(r, repo, timeWindow)
	if err != nil {
		s.logger.Error("shipped summary lookup failed", "repo", repo, "error", err)
		s.writeError(w, http.StatusInternalServerError, "shipped summary lookup failed")
		return
	}

	features, highRisk, merged := 0, 0, 0
	authorCounts := make(map[string]int)
	risk := map[string]int{"low": 0, "medium": 0, "high": 0}
	for _, row := range rows {
		if row.FeatureRule != featureRuleExcluded {
			features++
		}
		if row.HighRisk {
			highRisk++
		}
		if row.IsMerged {
			merged++
		}
		name := row.Author
		if name == "" {
			name = "Unknown"
		}
		authorCounts[name]++
		switch {
		case row.RiskScore >= 7.0:
			risk["high"]++
		case row.RiskScore >= 4.0:
			risk["medium"]++
		default:
			risk["low"]++
		}
	}

	topAuthors := make([]authorCount, 0, len(authorCounts))
	for name, count := range authorCounts {
		topAuthors = append(topAuthors, authorCount{Author: name, Count: count})
	}
	sort.SliceStable(topAuthors, func(i, j int) bool {
		if topAuthors[i].Count != topAuthors[j].Count {
			return topAuthors[i].Count > topAuthors[j].Count
		}
		return topAuthors[i].Author < topAuthors[j].Author
	})
	if len(topAuthors) > 5 {
		topAuthors = topAuthors[:5]
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_prs":         len(rows),
		"features":          features,
		"high_risk":         highRisk,
		"merged":            merged,
		"top_authors":       topAuthors,
		"risk_distribution": risk,
		"feature_distribution": map[string]int{
			"features":     features,
			"non_features": len(rows) - features,
		},
	})
}

func (s *Server) handleWhatShippedAuthors(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		s.writeError(w, http.StatusBadRequest, "repo parameter is required")
		return
	}

	rows, err := s.mart.GetRepoPRs(r.Context(), repo, shippedFetchLimit)
	if err != nil {
		s.logger.Error("shipped authors lookup failed", "repo", repo, "error", err)
		s.writeError(w, http.StatusInternalServerError, "shipped authors lookup failed")
		return
	}

	known := make(map[string]mart.AuthorRow)
	if authors, err := s.mart.ListAuthors(r.Context()); err != nil {
		s.logger.Warn("author table read failed, falling back to ledger names", "error", err)
	} else {
		for _, a := range authors {
			known[a.Username] = a
		}
	}

	seen := make(map[string]bool)
	var result []mart.AuthorRow
	for _, row := range rows {
		if row.Author == "" || seen[row.Author] {
			continue
		}
		seen[row.Author] = true
		if a, ok := known[row.Author]; ok {
			result = append(result, a)
		} else {
			result = append(result, mart.AuthorRow{Username: row.Author})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })

	s.writeJSON(w, http.StatusOK, map[string]any{
		"authors": result,
		"total":   len(result),
	})
}
