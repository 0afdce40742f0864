// Package vectorstore is the dual-collection index over enriched PRs:
// a PR collection and a file collection, each carrying a 1536-dim
// embedding under an IVFFlat cosine index plus the scalar columns the
// query path filters on.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/models"
)

// Defaults for query-time knobs.
const (
	DefaultProbes      = 10
	DefaultQueryLimit  = 1000
	DefaultSearchK     = 50
	DefaultInsertBatch = 50
)

const prColumns = `repo_id, repo_name, pr_number, pr_id, title, body,
	author_id, author_name, created_at, merged_at, is_merged, labels_full,
	additions, is_closed, status, deletions, changed_files, feature,
	pr_summary, risk_score, risk_band, high_risk, risk_reasons`

const fileColumns = `repo_id, repo_name, pr_number, pr_id, author_id,
	author_name, merged_at, file_id, file_status, language, additions,
	deletions, lines_changed, is_binary, is_config_file, is_documentation,
	is_test_file, is_source_code, patch, ai_summary, risk_score_file,
	high_risk_flag, file_risk_reasons`

// Store is the pgvector-backed index.
type Store struct {
	pool   *pgxpool.Pool
	probes int
	limit  int
	batch  int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithProbes sets the IVFFlat probe count used by vector searches.
func WithProbes(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.probes = n
		}
	}
}

// WithQueryLimit caps scalar query result sets.
func WithQueryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithInsertBatch sets how many file rows go into one insert batch.
func WithInsertBatch(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batch = n
		}
	}
}

// New connects to the store and registers the vector codec on every
// pooled connection.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityFatal,
			"parse vector store DSN")
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityFatal,
			"connect to vector store")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityFatal,
			"ping vector store")
	}
	s := &Store{
		pool:   pool,
		probes: DefaultProbes,
		limit:  DefaultQueryLimit,
		batch:  DefaultInsertBatch,
		logger: logging.Component("vectorstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the extension, both collections, and their
// indexes. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperrors.Wrap(err, apperrors.KindSchemaViolation, apperrors.SeverityFatal,
				"create vector store schema")
		}
	}
	return nil
}

// CoerceVector forces v to the collection dimension: longer vectors are
// truncated, shorter ones zero-padded, both with a warning. The zero
// vector passes through untouched.
func (s *Store) CoerceVector(v []float32) []float32 {
	switch {
	case len(v) == llm.EmbeddingDim:
		return v
	case len(v) > llm.EmbeddingDim:
		s.logger.Warn("truncating vector", "from", len(v), "to", llm.EmbeddingDim)
		return v[:llm.EmbeddingDim]
	default:
		s.logger.Warn("zero-padding vector", "from", len(v), "to", llm.EmbeddingDim)
		padded := make([]float32, llm.EmbeddingDim)
		copy(padded, v)
		return padded
	}
}

// UpsertPR replaces all rows for one PR in both collections inside a
// single transaction: delete by (repo_id, pr_id), then insert the fresh
// PR row and its file rows in batches. A failed row falls back to being
// skipped via savepoint so the rest of the PR still lands.
func (s *Store) UpsertPR(ctx context.Context, pr models.PRRow, files []models.FileRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("begin upsert for PR #%d", pr.PRNumber))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM pr_index WHERE repo_id = $1 AND pr_id = $2`, pr.RepoID, pr.PRID); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("clear PR rows for #%d", pr.PRNumber))
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM file_changes WHERE repo_id = $1 AND pr_id = $2`, pr.RepoID, pr.PRID); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("clear file rows for #%d", pr.PRNumber))
	}

	if err := s.insertRow(ctx, tx, insertPRSQL, prInsertArgs(s, pr)); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("insert PR row #%d", pr.PRNumber))
	}

	for start := 0; start < len(files); start += s.batch {
		end := min(start+s.batch, len(files))
		if err := s.insertFileBatch(ctx, tx, files[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			fmt.Sprintf("commit upsert for PR #%d", pr.PRNumber))
	}
	return nil
}

const insertPRSQL = `INSERT INTO pr_index (vector, ` + prColumns + `) VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	 $17, $18, $19, $20, $21, $22, $23, $24)`

const insertFileSQL = `INSERT INTO file_changes (vector, ` + fileColumns + `) VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	 $17, $18, $19, $20, $21, $22, $23, $24)`

func prInsertArgs(s *Store, pr models.PRRow) []any {
	return []any{
		pgvector.NewVector(s.CoerceVector(pr.Vector)),
		pr.RepoID, pr.RepoName, pr.PRNumber, pr.PRID, pr.Title, pr.Body,
		pr.AuthorID, pr.AuthorName, pr.CreatedAt, pr.MergedAt, pr.IsMerged,
		mustJSON(pr.LabelsFull), pr.Additions, pr.IsClosed, pr.Status,
		pr.Deletions, pr.ChangedFiles, pr.Feature, pr.PRSummary,
		pr.RiskScore, pr.RiskBand, pr.HighRisk, mustJSON(pr.RiskReasons),
	}
}

func fileInsertArgs(s *Store, f models.FileRow) []any {
	return []any{
		pgvector.NewVector(s.CoerceVector(f.Vector)),
		f.RepoID, f.RepoName, f.PRNumber, f.PRID, f.AuthorID, f.AuthorName,
		f.MergedAt, f.FileID, f.FileStatus, f.Language, f.Additions,
		f.Deletions, f.LinesChanged, f.IsBinary, f.IsConfigFile,
		f.IsDocumentation, f.IsTestFile, f.IsSourceCode, f.Patch,
		f.AISummary, f.RiskScoreFile, f.HighRiskFlag, mustJSON(f.FileRiskReasons),
	}
}

// insertFileBatch sends one batch and, when the batch fails, retries
// the rows one by one so a single bad row cannot sink its siblings.
func (s *Store) insertFileBatch(ctx context.Context, tx pgx.Tx, files []models.FileRow) error {
	batch := &pgx.Batch{}
	for i := range files {
		batch.Queue(insertFileSQL, fileInsertArgs(s, files[i])...)
	}

	// The batch runs inside a savepoint so a failure leaves the
	// transaction usable for the per-row retry.
	inner, err := tx.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"open batch savepoint")
	}
	if err := inner.SendBatch(ctx, batch).Close(); err == nil {
		return inner.Commit(ctx)
	}
	_ = inner.Rollback(ctx)

	s.logger.Warn("file batch insert failed, retrying per row", "rows", len(files))
	for i := range files {
		if err := s.insertRow(ctx, tx, insertFileSQL, fileInsertArgs(s, files[i])); err != nil {
			s.logger.Warn("skipping file row",
				"pr", files[i].PRNumber, "file", files[i].FileID, "error", err)
		}
	}
	return nil
}

// insertRow runs one insert under a savepoint.
func (s *Store) insertRow(ctx context.Context, tx pgx.Tx, sql string, args []any) error {
	inner, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := inner.Exec(ctx, sql, args...); err != nil {
		_ = inner.Rollback(ctx)
		return err
	}
	return inner.Commit(ctx)
}

// QueryPRs runs a scalar query over the PR collection, capped at the
// store's query limit.
func (s *Store) QueryPRs(ctx context.Context, f Filter) ([]models.PRRow, error) {
	where, args := Render(f, 1)
	sql := fmt.Sprintf(`SELECT %s FROM pr_index WHERE %s LIMIT %d`, prColumns, where, s.limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"query PR collection")
	}
	defer rows.Close()
	return scanPRRows(rows, false)
}

// SearchPRs runs a cosine search over the PR collection with f as the
// scalar pre-filter, returning the top k rows with their distances.
func (s *Store) SearchPRs(ctx context.Context, vec []float32, f Filter, k int) ([]models.PRRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	where, args := Render(f, 2)
	args = append([]any{pgvector.NewVector(s.CoerceVector(vec))}, args...)
	sql := fmt.Sprintf(
		`SELECT %s, vector <=> $1 AS _distance FROM pr_index WHERE %s ORDER BY vector <=> $1 LIMIT %d`,
		prColumns, where, k)

	var result []models.PRRow
	err := s.search(ctx, sql, args, func(rows pgx.Rows) error {
		var scanErr error
		result, scanErr = scanPRRows(rows, true)
		return scanErr
	})
	return result, err
}

// QueryFiles runs a scalar query over the file collection.
func (s *Store) QueryFiles(ctx context.Context, f Filter) ([]models.FileRow, error) {
	where, args := Render(f, 1)
	sql := fmt.Sprintf(`SELECT %s FROM file_changes WHERE %s LIMIT %d`, fileColumns, where, s.limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"query file collection")
	}
	defer rows.Close()
	return scanFileRows(rows, false)
}

// SearchFiles runs a cosine search over the file collection.
func (s *Store) SearchFiles(ctx context.Context, vec []float32, f Filter, k int) ([]models.FileRow, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	where, args := Render(f, 2)
	args = append([]any{pgvector.NewVector(s.CoerceVector(vec))}, args...)
	sql := fmt.Sprintf(
		`SELECT %s, vector <=> $1 AS _distance FROM file_changes WHERE %s ORDER BY vector <=> $1 LIMIT %d`,
		fileColumns, where, k)

	var result []models.FileRow
	err := s.search(ctx, sql, args, func(rows pgx.Rows) error {
		var scanErr error
		result, scanErr = scanFileRows(rows, true)
		return scanErr
	})
	return result, err
}

// search runs a vector query inside a transaction so the probe count
// applies per statement via SET LOCAL.
func (s *Store) search(ctx context.Context, sql string, args []any, scan func(pgx.Rows) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"begin vector search")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", s.probes)); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"set search probes")
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"vector search")
	}
	if err := scan(rows); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListRepositories returns the distinct repository names present in the
// PR collection.
func (s *Store) ListRepositories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT repo_name FROM pr_index ORDER BY repo_name`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindTransientRemote, apperrors.SeverityHigh,
			"list repositories")
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.ParseError(err, "scan repository name")
		}
		repos = append(repos, name)
	}
	return repos, rows.Err()
}

func scanPRRows(rows pgx.Rows, withDistance bool) ([]models.PRRow, error) {
	var result []models.PRRow
	for rows.Next() {
		var (
			r       models.PRRow
			labels  []byte
			reasons []byte
		)
		dest := []any{
			&r.RepoID, &r.RepoName, &r.PRNumber, &r.PRID, &r.Title, &r.Body,
			&r.AuthorID, &r.AuthorName, &r.CreatedAt, &r.MergedAt, &r.IsMerged,
			&labels, &r.Additions, &r.IsClosed, &r.Status, &r.Deletions,
			&r.ChangedFiles, &r.Feature, &r.PRSummary, &r.RiskScore,
			&r.RiskBand, &r.HighRisk, &reasons,
		}
		if withDistance {
			dest = append(dest, &r.Distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.ParseError(err, "scan PR row")
		}
		if err := json.Unmarshal(labels, &r.LabelsFull); err != nil {
			return nil, apperrors.ParseError(err, "decode labels_full")
		}
		if err := json.Unmarshal(reasons, &r.RiskReasons); err != nil {
			return nil, apperrors.ParseError(err, "decode risk_reasons")
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanFileRows(rows pgx.Rows, withDistance bool) ([]models.FileRow, error) {
	var result []models.FileRow
	for rows.Next() {
		var (
			r       models.FileRow
			reasons []byte
		)
		dest := []any{
			&r.RepoID, &r.RepoName, &r.PRNumber, &r.PRID, &r.AuthorID,
			&r.AuthorName, &r.MergedAt, &r.FileID, &r.FileStatus, &r.Language,
			&r.Additions, &r.Deletions, &r.LinesChanged, &r.IsBinary,
			&r.IsConfigFile, &r.IsDocumentation, &r.IsTestFile,
			&r.IsSourceCode, &r.Patch, &r.AISummary, &r.RiskScoreFile,
			&r.HighRiskFlag, &reasons,
		}
		if withDistance {
			dest = append(dest, &r.Distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.ParseError(err, "scan file row")
		}
		if err := json.Unmarshal(reasons, &r.FileRiskReasons); err != nil {
			return nil, apperrors.ParseError(err, "decode file_risk_reasons")
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable for unserializable values, which the row
		// types cannot contain.
		panic(err)
	}
	return data
}
