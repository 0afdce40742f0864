// Package projector folds the vector-store rows of a repository into
// the relational mart: per-author daily and windowed metrics, file
// ownership shares, per-author merged PR listings, and the shipped PR
// ledger.
package projector

import (
	"log/slog"
	"sort"
	"time"

	"github.com/whattherepo/whattherepo/internal/enrich"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Windows is the authoritative metrics window set, in days. AllTimeWindow
// marks the unbounded window.
var Windows = []int{7, 15, 30, 60, 90, AllTimeWindow}

// AllTimeWindow is the sentinel window covering the full data range.
const AllTimeWindow = 999

// DefaultDataWindowDays bounds how far back source rows are read.
const DefaultDataWindowDays = 365


// Engineer-lens table names accepted by EngineerOptions.Table.
const (
	TableAuthors       = "authors"
	TableDaily         = "author_metrics_daily"
	TableWindow        = "author_metrics_window"
	TableAuthorPRs     = "author_prs_window"
	TableFileOwnership = "author_file_ownership"
	TableAll           = "all"
)

// EngineerOptions tunes the engineer-lens projection.
type EngineerOptions struct {
	// DataWindowDays bounds how far back source rows are read.
	// DefaultDataWindowDays when zero.
	DataWindowDays int
	// Force recomputes even when window metrics already exist.
	Force bool
	// WindowDays restricts projection to one metrics window. Zero means
	// every window in Windows.
	WindowDays int
	// Table restricts which mart table is written. Empty or TableAll
	// writes all five.
	Table string
}

func (o EngineerOptions) writes(table string) bool {
	return o.Table == "" || o.Table == TableAll || o.Table == table
}

// ShippedOptions tunes the shipped-ledger projection.
type ShippedOptions struct {
	// Force rebuilds even when ledger rows already exist.
	Force bool
	// Incremental projects only PRs created after the newest ledger row.
	Incremental bool
}

// ValidWindow reports whether n is a member of the metrics window set.
func ValidWindow(n int) bool {
	for _, w := range Windows {
		if w == n {
			return true
		}
	}
	return false
}

// ValidTable reports whether name is an engineer-lens table selector.
func ValidTable(name string) bool {
	switch name {
	case "", TableAll, TableAuthors, TableDaily, TableWindow, TableAuthorPRs, TableFileOwnership:
		return true
	}
	return false
}

// Projector reads PR and file rows from the vector store and writes the
// five analytic tables.
type Projector struct {
	store  *vectorstore.Store
	mart   *mart.Mart
	logger *slog.Logger
}

// New creates a projector over store and m.
func New(store *vectorstore.Store, m *mart.Mart) *Projector {
	return &Projector{
		store:  store,
		mart:   m,
		logger: logging.Component("projector"),
	}
}

// featureRule reconstructs the ingest classifier's verdict from a
// stored PR row. An allow label means the label rule fired; a feature
// string without one means the merged-unlabeled fallback fired; an
// empty feature string means the PR was excluded.
func featureRule(row *models.PRRow) (string, float64) {
	switch {
	case enrich.HasAllowLabel(row.LabelsFull):
		return enrich.RuleLabelAllow, 0.9
	case row.Feature != "":
		return enrich.RuleUnlabeledInclude, 0.3
	default:
		return enrich.RuleExcluded, 0.0
	}
}

// dedupeByPRID drops duplicate PR rows, keeping the first occurrence.
// Rows without a pr_id fall back to the PR number so legacy rows do
// not collapse into each other. Upstream re-emission is an observed
// hazard.
func dedupeByPRID(rows []models.PRRow) []models.PRRow {
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

// windowBounds returns the [start, end] dates for a metrics window
// ending today. The all-time window spans the whole data range.
func windowBounds(windowDays, dataWindowDays int, today time.Time) (time.Time, time.Time) {
	end := today
	if windowDays == AllTimeWindow {
		return end.AddDate(0, 0, -(dataWindowDays - 1)), end
	}
	return end.AddDate(0, 0, -(windowDays - 1)), end
}

func day(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(mart.DateLayout)
}

// topRiskyFiles picks at most max files of a PR ordered by
// (risk_score_file, lines_changed) descending, dropping zero scores.
func topRiskyFiles(files []models.FileRow, max int) []mart.RiskyFile {
	sorted := make([]models.FileRow, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RiskScoreFile != sorted[j].RiskScoreFile {
			return sorted[i].RiskScoreFile > sorted[j].RiskScoreFile
		}
		return sorted[i].LinesChanged > sorted[j].LinesChanged
	})

	var top []mart.RiskyFile
	for _, f := range sorted {
		if len(top) >= max {
			break
		}
		if f.RiskScoreFile <= 0 {
			continue
		}
		top = append(top, mart.RiskyFile{
			FilePath: f.FileID,
			Risk:     f.RiskScoreFile,
			Lines:    f.LinesChanged,
			Status:   f.FileStatus,
			Language: f.Language,
		})
	}
	return top
}
