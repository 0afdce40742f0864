package vectorstore

import "fmt"

// Collection names.
const (
	PRTable   = "pr_index"
	FileTable = "file_changes"
)

// ivfflatLists sizes the IVFFlat index. Fixed at creation; changing it
// requires reindexing.
const ivfflatLists = 1024

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS pr_index (
		primary_key   BIGSERIAL PRIMARY KEY,
		vector        vector(1536) NOT NULL,
		repo_id       BIGINT NOT NULL,
		repo_name     TEXT NOT NULL,
		pr_number     BIGINT NOT NULL,
		pr_id         BIGINT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		author_id     BIGINT NOT NULL DEFAULT 0,
		author_name   TEXT NOT NULL DEFAULT '',
		created_at    BIGINT NOT NULL DEFAULT 0,
		merged_at     BIGINT NOT NULL DEFAULT 0,
		is_merged     BOOLEAN NOT NULL DEFAULT FALSE,
		labels_full   JSONB NOT NULL DEFAULT '[]',
		additions     INTEGER NOT NULL DEFAULT 0,
		is_closed     BOOLEAN NOT NULL DEFAULT FALSE,
		status        TEXT NOT NULL DEFAULT '',
		deletions     INTEGER NOT NULL DEFAULT 0,
		changed_files INTEGER NOT NULL DEFAULT 0,
		feature       TEXT NOT NULL DEFAULT '',
		pr_summary    TEXT NOT NULL DEFAULT '',
		risk_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		risk_band     TEXT NOT NULL DEFAULT 'low',
		high_risk     BOOLEAN NOT NULL DEFAULT FALSE,
		risk_reasons  JSONB NOT NULL DEFAULT '[]'
	)`,

	`CREATE TABLE IF NOT EXISTS file_changes (
		primary_key       BIGSERIAL PRIMARY KEY,
		vector            vector(1536) NOT NULL,
		repo_id           BIGINT NOT NULL,
		repo_name         TEXT NOT NULL,
		pr_number         BIGINT NOT NULL,
		pr_id             BIGINT NOT NULL,
		author_id         BIGINT NOT NULL DEFAULT 0,
		author_name       TEXT NOT NULL DEFAULT '',
		merged_at         BIGINT NOT NULL DEFAULT 0,
		file_id           TEXT NOT NULL,
		file_status       TEXT NOT NULL DEFAULT '',
		language          TEXT NOT NULL DEFAULT 'Unknown',
		additions         INTEGER NOT NULL DEFAULT 0,
		deletions         INTEGER NOT NULL DEFAULT 0,
		lines_changed     INTEGER NOT NULL DEFAULT 0,
		is_binary         BOOLEAN NOT NULL DEFAULT FALSE,
		is_config_file    BOOLEAN NOT NULL DEFAULT FALSE,
		is_documentation  BOOLEAN NOT NULL DEFAULT FALSE,
		is_test_file      BOOLEAN NOT NULL DEFAULT FALSE,
		is_source_code    BOOLEAN NOT NULL DEFAULT FALSE,
		patch             TEXT NOT NULL DEFAULT '',
		ai_summary        TEXT NOT NULL DEFAULT '',
		risk_score_file   DOUBLE PRECISION NOT NULL DEFAULT 0,
		high_risk_flag    BOOLEAN NOT NULL DEFAULT FALSE,
		file_risk_reasons JSONB NOT NULL DEFAULT '[]'
	)`,

	fmt.Sprintf(`CREATE INDEX IF NOT EXISTS pr_index_vector_idx
		ON pr_index USING ivfflat (vector vector_cosine_ops) WITH (lists = %d)`, ivfflatLists),

	fmt.Sprintf(`CREATE INDEX IF NOT EXISTS file_changes_vector_idx
		ON file_changes USING ivfflat (vector vector_cosine_ops) WITH (lists = %d)`, ivfflatLists),

	`CREATE INDEX IF NOT EXISTS pr_index_repo_pr_idx ON pr_index (repo_id, pr_id)`,
	`CREATE INDEX IF NOT EXISTS pr_index_repo_name_idx ON pr_index (repo_name)`,
	`CREATE INDEX IF NOT EXISTS pr_index_merged_at_idx ON pr_index (merged_at)`,
	`CREATE INDEX IF NOT EXISTS file_changes_repo_pr_idx ON file_changes (repo_id, pr_id)`,
	`CREATE INDEX IF NOT EXISTS file_changes_file_id_idx ON file_changes (repo_name, file_id)`,
}
