// Package mart is the relational analytics mart behind the dashboard
// surfaces: per-author daily and windowed metrics, file ownership, and
// the per-repository PR ledger. It runs on Postgres in production and
// SQLite for local work; every write is an idempotent upsert.
package mart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
	"github.com/whattherepo/whattherepo/internal/logging"
)

// DateLayout is the canonical day and window-bound encoding.
const DateLayout = "2006-01-02"

// upsertBatchSize bounds rows per transaction.
const upsertBatchSize = 50

// Mart wraps the analytics database.
type Mart struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

// Open connects to the mart. driver is "postgres" or "sqlite3".
func Open(driver, dsn string) (*Mart, error) {
	if driver != "postgres" && driver != "sqlite3" {
		return nil, apperrors.ConfigErrorf("unsupported mart driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityFatal,
			"connect to mart")
	}
	return &Mart{
		db:     db,
		driver: driver,
		logger: logging.Component("mart"),
	}, nil
}

// Close releases the database handle.
func (m *Mart) Close() error { return m.db.Close() }

// EnsureSchema creates all mart tables. Idempotent.
func (m *Mart) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(m.driver) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.Wrap(err, apperrors.KindSchemaViolation, apperrors.SeverityFatal,
				"create mart schema")
		}
	}
	return nil
}

// AuthorRow is one row of the authors table.
type AuthorRow struct {
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url"`
}

// NewAuthorRow builds the author record derived from a forge login.
func NewAuthorRow(username string) AuthorRow {
	return AuthorRow{
		Username:    username,
		DisplayName: username,
		AvatarURL:   fmt.Sprintf("https://github.com/%s.png", username),
	}
}

// DailyMetricRow is one author-day of activity in one repository.
type DailyMetricRow struct {
	Username       string `db:"username" json:"username"`
	RepoName       string `db:"repo_name" json:"repo_name"`
	Day            string `db:"day" json:"day"`
	PRsSubmitted   int    `db:"prs_submitted" json:"prs_submitted"`
	PRsMerged      int    `db:"prs_merged" json:"prs_merged"`
	LinesChanged   int    `db:"lines_changed" json:"lines_changed"`
	HighRiskPRs    int    `db:"high_risk_prs" json:"high_risk_prs"`
	FeaturesMerged int    `db:"features_merged" json:"features_merged"`
}

// WindowMetricRow is one author's aggregate over a metrics window.
type WindowMetricRow struct {
	Username            string  `db:"username" json:"username"`
	RepoName            string  `db:"repo_name" json:"repo_name"`
	WindowDays          int     `db:"window_days" json:"window_days"`
	StartDate           string  `db:"start_date" json:"start_date"`
	EndDate             string  `db:"end_date" json:"end_date"`
	PRsSubmitted        int     `db:"prs_submitted" json:"prs_submitted"`
	PRsMerged           int     `db:"prs_merged" json:"prs_merged"`
	HighRiskPRs         int     `db:"high_risk_prs" json:"high_risk_prs"`
	HighRiskRate        float64 `db:"high_risk_rate" json:"high_risk_rate"`
	LinesChanged        int     `db:"lines_changed" json:"lines_changed"`
	OwnershipLowRiskPRs int     `db:"ownership_low_risk_prs" json:"ownership_low_risk_prs"`
}

// FileOwnershipRow is one author's share of one file within a window.
type FileOwnershipRow struct {
	Username     string     `db:"username" json:"username"`
	RepoName     string     `db:"repo_name" json:"repo_name"`
	WindowDays   int        `db:"window_days" json:"window_days"`
	StartDate    string     `db:"start_date" json:"start_date"`
	EndDate      string     `db:"end_date" json:"end_date"`
	FileID       string     `db:"file_id" json:"file_id"`
	FilePath     string     `db:"file_path" json:"file_path"`
	OwnershipPct float64    `db:"ownership_pct" json:"ownership_pct"`
	AuthorLines  int        `db:"author_lines" json:"author_lines"`
	TotalLines   int        `db:"total_lines" json:"total_lines"`
	LastTouched  *time.Time `db:"last_touched" json:"last_touched,omitempty"`
}

// AuthorPRRow is one merged PR attributed to an author within a window.
type AuthorPRRow struct {
	Username          string    `db:"username" json:"username"`
	RepoName          string    `db:"repo_name" json:"repo_name"`
	WindowDays        int       `db:"window_days" json:"window_days"`
	StartDate         string    `db:"start_date" json:"start_date"`
	EndDate           string    `db:"end_date" json:"end_date"`
	PRNumber          int       `db:"pr_number" json:"pr_number"`
	Title             string    `db:"title" json:"title"`
	PRSummary         string    `db:"pr_summary" json:"pr_summary"`
	MergedAt          time.Time `db:"merged_at" json:"merged_at"`
	RiskScore         float64   `db:"risk_score" json:"risk_score"`
	HighRisk          bool      `db:"high_risk" json:"high_risk"`
	FeatureRule       string    `db:"feature_rule" json:"feature_rule"`
	FeatureConfidence float64   `db:"feature_confidence" json:"feature_confidence"`
}

// RiskyFile is one entry of a repo_prs top_risky_files list.
type RiskyFile struct {
	FilePath string  `json:"file_path"`
	Risk     float64 `json:"risk"`
	Lines    int     `json:"lines"`
	Status   string  `json:"status"`
	Language string  `json:"language"`
}

// RepoPRRow is one row of the repo_prs ledger.
type RepoPRRow struct {
	RepoName          string     `db:"repo_name" json:"repo_name"`
	PRNumber          int        `db:"pr_number" json:"pr_number"`
	Title             string     `db:"title" json:"title"`
	PRSummary         string     `db:"pr_summary" json:"pr_summary"`
	Author            string     `db:"author" json:"author"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	MergedAt          *time.Time `db:"merged_at" json:"merged_at,omitempty"`
	IsMerged          bool       `db:"is_merged" json:"is_merged"`
	Additions         int        `db:"additions" json:"additions"`
	Deletions         int        `db:"deletions" json:"deletions"`
	ChangedFiles      int        `db:"changed_files" json:"changed_files"`
	LabelsFull        []string   `db:"-" json:"labels_full"`
	FeatureRule       string     `db:"feature_rule" json:"feature_rule"`
	FeatureConfidence float64    `db:"feature_confidence" json:"feature_confidence"`
	RiskScore         float64    `db:"risk_score" json:"risk_score"`
	HighRisk          bool       `db:"high_risk" json:"high_risk"`
	RiskReasons       []string   `db:"-" json:"risk_reasons"`
	TopRiskyFiles     []RiskyFile `db:"-" json:"top_risky_files"`
}

// upsertRows runs exec for each row in transactions of upsertBatchSize.
// A failed batch is retried row by row in autocommit mode so one bad
// row costs itself, not its batch.
func (m *Mart) upsertRows(ctx context.Context, table string, n int, exec func(e sqlx.ExtContext, i int) error) error {
	for start := 0; start < n; start += upsertBatchSize {
		end := min(start+upsertBatchSize, n)

		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
				fmt.Sprintf("begin %s upsert", table))
		}
		batchErr := func() error {
			for i := start; i < end; i++ {
				if err := exec(tx, i); err != nil {
					return err
				}
			}
			return tx.Commit()
		}()
		if batchErr == nil {
			continue
		}
		_ = tx.Rollback()

		m.logger.Warn("batch upsert failed, retrying per row",
			"table", table, "rows", end-start, "error", batchErr)
		for i := start; i < end; i++ {
			if err := exec(m.db, i); err != nil {
				m.logger.Warn("skipping row", "table", table, "row", i, "error", err)
			}
		}
	}
	return nil
}

// UpsertAuthors writes author identities, updating display data on
// conflict.
func (m *Mart) UpsertAuthors(ctx context.Context, rows []AuthorRow) error {
	q := m.db.Rebind(`INSERT INTO authors (username, display_name, avatar_url)
		VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "authors", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		_, err := e.ExecContext(ctx, q, r.Username, r.DisplayName, r.AvatarURL)
		return err
	})
}

// UpsertDailyMetrics writes author-day metric rows.
func (m *Mart) UpsertDailyMetrics(ctx context.Context, rows []DailyMetricRow) error {
	q := m.db.Rebind(`INSERT INTO author_metrics_daily
		(username, repo_name, day, prs_submitted, prs_merged, lines_changed, high_risk_prs, features_merged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, repo_name, day) DO UPDATE SET
			prs_submitted = EXCLUDED.prs_submitted,
			prs_merged = EXCLUDED.prs_merged,
			lines_changed = EXCLUDED.lines_changed,
			high_risk_prs = EXCLUDED.high_risk_prs,
			features_merged = EXCLUDED.features_merged,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "author_metrics_daily", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		_, err := e.ExecContext(ctx, q, r.Username, r.RepoName, r.Day,
			r.PRsSubmitted, r.PRsMerged, r.LinesChanged, r.HighRiskPRs, r.FeaturesMerged)
		return err
	})
}

// UpsertWindowMetrics writes windowed author aggregates.
func (m *Mart) UpsertWindowMetrics(ctx context.Context, rows []WindowMetricRow) error {
	q := m.db.Rebind(`INSERT INTO author_metrics_window
		(username, repo_name, window_days, start_date, end_date, prs_submitted, prs_merged,
		 high_risk_prs, high_risk_rate, lines_changed, ownership_low_risk_prs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, repo_name, window_days, start_date, end_date) DO UPDATE SET
			prs_submitted = EXCLUDED.prs_submitted,
			prs_merged = EXCLUDED.prs_merged,
			high_risk_prs = EXCLUDED.high_risk_prs,
			high_risk_rate = EXCLUDED.high_risk_rate,
			lines_changed = EXCLUDED.lines_changed,
			ownership_low_risk_prs = EXCLUDED.ownership_low_risk_prs,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "author_metrics_window", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		_, err := e.ExecContext(ctx, q, r.Username, r.RepoName, r.WindowDays,
			r.StartDate, r.EndDate, r.PRsSubmitted, r.PRsMerged,
			r.HighRiskPRs, r.HighRiskRate, r.LinesChanged, r.OwnershipLowRiskPRs)
		return err
	})
}

// UpsertFileOwnership writes per-file ownership shares.
func (m *Mart) UpsertFileOwnership(ctx context.Context, rows []FileOwnershipRow) error {
	q := m.db.Rebind(`INSERT INTO author_file_ownership
		(username, repo_name, window_days, start_date, end_date, file_id, file_path,
		 ownership_pct, author_lines, total_lines, last_touched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, repo_name, window_days, start_date, end_date, file_id) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			ownership_pct = EXCLUDED.ownership_pct,
			author_lines = EXCLUDED.author_lines,
			total_lines = EXCLUDED.total_lines,
			last_touched = EXCLUDED.last_touched,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "author_file_ownership", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		_, err := e.ExecContext(ctx, q, r.Username, r.RepoName, r.WindowDays,
			r.StartDate, r.EndDate, r.FileID, r.FilePath,
			r.OwnershipPct, r.AuthorLines, r.TotalLines, r.LastTouched)
		return err
	})
}

// UpsertAuthorPRs writes the per-author merged-PR window listing.
func (m *Mart) UpsertAuthorPRs(ctx context.Context, rows []AuthorPRRow) error {
	q := m.db.Rebind(`INSERT INTO author_prs_window
		(username, repo_name, window_days, start_date, end_date, pr_number, title,
		 pr_summary, merged_at, risk_score, high_risk, feature_rule, feature_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, repo_name, window_days, start_date, end_date, pr_number) DO UPDATE SET
			title = EXCLUDED.title,
			pr_summary = EXCLUDED.pr_summary,
			merged_at = EXCLUDED.merged_at,
			risk_score = EXCLUDED.risk_score,
			high_risk = EXCLUDED.high_risk,
			feature_rule = EXCLUDED.feature_rule,
			feature_confidence = EXCLUDED.feature_confidence,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "author_prs_window", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		_, err := e.ExecContext(ctx, q, r.Username, r.RepoName, r.WindowDays,
			r.StartDate, r.EndDate, r.PRNumber, r.Title, r.PRSummary,
			r.MergedAt, r.RiskScore, r.HighRisk, r.FeatureRule, r.FeatureConfidence)
		return err
	})
}

// UpsertRepoPRs writes the repository PR ledger.
func (m *Mart) UpsertRepoPRs(ctx context.Context, rows []RepoPRRow) error {
	q := m.db.Rebind(`INSERT INTO repo_prs
		(repo_name, pr_number, title, pr_summary, author, created_at, merged_at,
		 is_merged, additions, deletions, changed_files, labels_full, feature_rule,
		 feature_confidence, risk_score, high_risk, risk_reasons, top_risky_files)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_name, pr_number) DO UPDATE SET
			title = EXCLUDED.title,
			pr_summary = EXCLUDED.pr_summary,
			author = EXCLUDED.author,
			created_at = EXCLUDED.created_at,
			merged_at = EXCLUDED.merged_at,
			is_merged = EXCLUDED.is_merged,
			additions = EXCLUDED.additions,
			deletions = EXCLUDED.deletions,
			changed_files = EXCLUDED.changed_files,
			labels_full = EXCLUDED.labels_full,
			feature_rule = EXCLUDED.feature_rule,
			feature_confidence = EXCLUDED.feature_confidence,
			risk_score = EXCLUDED.risk_score,
			high_risk = EXCLUDED.high_risk,
			risk_reasons = EXCLUDED.risk_reasons,
			top_risky_files = EXCLUDED.top_risky_files,
			updated_at = CURRENT_TIMESTAMP`)
	return m.upsertRows(ctx, "repo_prs", len(rows), func(e sqlx.ExtContext, i int) error {
		r := rows[i]
		labels, err := json.Marshal(emptyIfNil(r.LabelsFull))
		if err != nil {
			return err
		}
		reasons, err := json.Marshal(emptyIfNil(r.RiskReasons))
		if err != nil {
			return err
		}
		riskyFiles := r.TopRiskyFiles
		if riskyFiles == nil {
			riskyFiles = []RiskyFile{}
		}
		topFiles, err := json.Marshal(riskyFiles)
		if err != nil {
			return err
		}
		_, err = e.ExecContext(ctx, q, r.RepoName, r.PRNumber, r.Title, r.PRSummary,
			r.Author, r.CreatedAt, r.MergedAt, r.IsMerged, r.Additions, r.Deletions,
			r.ChangedFiles, labels, r.FeatureRule, r.FeatureConfidence,
			r.RiskScore, r.HighRisk, reasons, topFiles)
		return err
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// HasWindowMetrics reports whether window metrics already exist for the
// repository and window. The projector skips recomputation unless a
// refresh is forced.
func (m *Mart) HasWindowMetrics(ctx context.Context, repoName string, windowDays int) (bool, error) {
	q := m.db.Rebind(`SELECT COUNT(*) FROM author_metrics_window WHERE repo_name = ? AND window_days = ?`)
	var count int
	if err := m.db.GetContext(ctx, &count, q, repoName, windowDays); err != nil {
		return false, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"check window metrics")
	}
	return count > 0, nil
}

// deleteRepoRows removes every row of table for repoName, optionally
// restricted to one window.
func (m *Mart) deleteRepoRows(ctx context.Context, table, repoName string, windowDays int) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE repo_name = ?`, table)
	args := []any{repoName}
	if windowDays > 0 {
		q += ` AND window_days = ?`
		args = append(args, windowDays)
	}
	if _, err := m.db.ExecContext(ctx, m.db.Rebind(q), args...); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("clear %s", table))
	}
	return nil
}

// DeleteDailyMetrics clears the author-day rows of one repository.
func (m *Mart) DeleteDailyMetrics(ctx context.Context, repoName string) error {
	return m.deleteRepoRows(ctx, "author_metrics_daily", repoName, 0)
}

// DeleteWindowMetrics clears the windowed aggregates of one repository.
// windowDays restricts the delete to one window; zero clears them all.
func (m *Mart) DeleteWindowMetrics(ctx context.Context, repoName string, windowDays int) error {
	return m.deleteRepoRows(ctx, "author_metrics_window", repoName, windowDays)
}

// DeleteFileOwnership clears the ownership rows of one repository.
func (m *Mart) DeleteFileOwnership(ctx context.Context, repoName string, windowDays int) error {
	return m.deleteRepoRows(ctx, "author_file_ownership", repoName, windowDays)
}

// DeleteAuthorPRs clears the per-author PR window rows of one repository.
func (m *Mart) DeleteAuthorPRs(ctx context.Context, repoName string, windowDays int) error {
	return m.deleteRepoRows(ctx, "author_prs_window", repoName, windowDays)
}

// DeleteRepoPRs clears the ledger rows of one repository.
func (m *Mart) DeleteRepoPRs(ctx context.Context, repoName string) error {
	return m.deleteRepoRows(ctx, "repo_prs", repoName, 0)
}

// LatestRepoPRCreatedAt returns the creation time of the newest ledger
// row for repoName, or nil when the ledger is empty. Incremental
// shipped runs use it as their cutoff.
func (m *Mart) LatestRepoPRCreatedAt(ctx context.Context, repoName string) (*time.Time, error) {
	q := m.db.Rebind(`SELECT created_at FROM repo_prs WHERE repo_name = ? ORDER BY created_at DESC LIMIT 1`)
	var ts time.Time
	err := m.db.GetContext(ctx, &ts, q, repoName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"latest repo_prs created_at")
	}
	return &ts, nil
}

// HasRepoPRs reports whether the ledger already holds rows for repoName.
func (m *Mart) HasRepoPRs(ctx context.Context, repoName string) (bool, error) {
	q := m.db.Rebind(`SELECT COUNT(*) FROM repo_prs WHERE repo_name = ?`)
	var count int
	if err := m.db.GetContext(ctx, &count, q, repoName); err != nil {
		return false, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"check repo_prs")
	}
	return count > 0, nil
}

// ListAuthors returns all known authors.
func (m *Mart) ListAuthors(ctx context.Context) ([]AuthorRow, error) {
	var rows []AuthorRow
	err := m.db.SelectContext(ctx, &rows,
		`SELECT username, display_name, avatar_url FROM authors ORDER BY username`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"list authors")
	}
	return rows, nil
}

// GetWindowMetrics returns the windowed metrics for one repository.
func (m *Mart) GetWindowMetrics(ctx context.Context, repoName string, windowDays int) ([]WindowMetricRow, error) {
	q := m.db.Rebind(`SELECT username, repo_name, window_days, start_date, end_date,
			prs_submitted, prs_merged, high_risk_prs, high_risk_rate, lines_changed, ownership_low_risk_prs
		FROM author_metrics_window
		WHERE repo_name = ? AND window_days = ?
		ORDER BY prs_merged DESC, username`)
	var rows []WindowMetricRow
	if err := m.db.SelectContext(ctx, &rows, q, repoName, windowDays); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"get window metrics")
	}
	return rows, nil
}

// GetFileOwnership returns an author's file ownership rows within a
// window, strongest ownership first.
func (m *Mart) GetFileOwnership(ctx context.Context, repoName, username string, windowDays int) ([]FileOwnershipRow, error) {
	q := m.db.Rebind(`SELECT username, repo_name, window_days, start_date, end_date, file_id,
			file_path, ownership_pct, author_lines, total_lines, last_touched
		FROM author_file_ownership
		WHERE repo_name = ? AND username = ? AND window_days = ?
		ORDER BY ownership_pct DESC, file_id`)
	var rows []FileOwnershipRow
	if err := m.db.SelectContext(ctx, &rows, q, repoName, username, windowDays); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"get file ownership")
	}
	return rows, nil
}

// GetAuthorPRs returns an author's merged PRs within a window, most
// recent first.
func (m *Mart) GetAuthorPRs(ctx context.Context, repoName, username string, windowDays int) ([]AuthorPRRow, error) {
	q := m.db.Rebind(`SELECT username, repo_name, window_days, start_date, end_date, pr_number,
			title, pr_summary, merged_at, risk_score, high_risk, feature_rule, feature_confidence
		FROM author_prs_window
		WHERE repo_name = ? AND username = ? AND window_days = ?
		ORDER BY merged_at DESC`)
	var rows []AuthorPRRow
	if err := m.db.SelectContext(ctx, &rows, q, repoName, username, windowDays); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"get author PRs")
	}
	return rows, nil
}

// GetRepoPRs returns the ledger rows for one repository, most recently
// merged first with open PRs last.
func (m *Mart) GetRepoPRs(ctx context.Context, repoName string, limit int) ([]RepoPRRow, error) {
	if limit <= 0 {
		limit = 100
	}
	q := m.db.Rebind(`SELECT repo_name, pr_number, title, pr_summary, author, created_at,
			merged_at, is_merged, additions, deletions, changed_files, labels_full,
			feature_rule, feature_confidence, risk_score, high_risk, risk_reasons, top_risky_files
		FROM repo_prs
		WHERE repo_name = ?
		ORDER BY merged_at DESC NULLS LAST, pr_number DESC
		LIMIT ?`)
	if m.driver == "sqlite3" {
		// SQLite has no NULLS LAST.
		q = m.db.Rebind(`SELECT repo_name, pr_number, title, pr_summary, author, created_at,
				merged_at, is_merged, additions, deletions, changed_files, labels_full,
				feature_rule, feature_confidence, risk_score, high_risk, risk_reasons, top_risky_files
			FROM repo_prs
			WHERE repo_name = ?
			ORDER BY merged_at IS NULL, merged_at DESC, pr_number DESC
			LIMIT ?`)
	}

	rows, err := m.db.QueryxContext(ctx, q, repoName, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"get repo PRs")
	}
	defer rows.Close()

	var result []RepoPRRow
	for rows.Next() {
		var (
			r        RepoPRRow
			labels   []byte
			reasons  []byte
			topFiles []byte
		)
		if err := rows.Scan(&r.RepoName, &r.PRNumber, &r.Title, &r.PRSummary, &r.Author,
			&r.CreatedAt, &r.MergedAt, &r.IsMerged, &r.Additions, &r.Deletions,
			&r.ChangedFiles, &labels, &r.FeatureRule, &r.FeatureConfidence,
			&r.RiskScore, &r.HighRisk, &reasons, &topFiles); err != nil {
			return nil, apperrors.ParseError(err, "scan repo_prs row")
		}
		if err := json.Unmarshal(labels, &r.LabelsFull); err != nil {
			return nil, apperrors.ParseError(err, "decode labels_full")
		}
		if err := json.Unmarshal(reasons, &r.RiskReasons); err != nil {
			return nil, apperrors.ParseError(err, "decode risk_reasons")
		}
		if err := json.Unmarshal(topFiles, &r.TopRiskyFiles); err != nil {
			return nil, apperrors.ParseError(err, "decode top_risky_files")
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
