package mart

import "fmt"

// jsonColumnType picks the JSON column type per driver. SQLite stores
// JSON as TEXT; the encoding is identical either way.
func jsonColumnType(driver string) string {
	if driver == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}

func timestampColumnType(driver string) string {
	if driver == "postgres" {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

func schemaStatements(driver string) []string {
	jsonT := jsonColumnType(driver)
	tsT := timestampColumnType(driver)

	return []string{
		`CREATE TABLE IF NOT EXISTS authors (
			username     TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url   TEXT NOT NULL DEFAULT '',
			updated_at   ` + tsT + ` NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS author_metrics_daily (
			username        TEXT NOT NULL,
			repo_name       TEXT NOT NULL,
			day             TEXT NOT NULL,
			prs_submitted   INTEGER NOT NULL DEFAULT 0,
			prs_merged      INTEGER NOT NULL DEFAULT 0,
			lines_changed   INTEGER NOT NULL DEFAULT 0,
			high_risk_prs   INTEGER NOT NULL DEFAULT 0,
			features_merged INTEGER NOT NULL DEFAULT 0,
			updated_at      ` + tsT + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (username, repo_name, day)
		)`,

		`CREATE TABLE IF NOT EXISTS author_metrics_window (
			username               TEXT NOT NULL,
			repo_name              TEXT NOT NULL,
			window_days            INTEGER NOT NULL,
			start_date             TEXT NOT NULL,
			end_date               TEXT NOT NULL,
			prs_submitted          INTEGER NOT NULL DEFAULT 0,
			prs_merged             INTEGER NOT NULL DEFAULT 0,
			high_risk_prs          INTEGER NOT NULL DEFAULT 0,
			high_risk_rate         DOUBLE PRECISION NOT NULL DEFAULT 0,
			lines_changed          INTEGER NOT NULL DEFAULT 0,
			ownership_low_risk_prs INTEGER NOT NULL DEFAULT 0,
			updated_at             ` + tsT + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (username, repo_name, window_days, start_date, end_date)
		)`,

		`CREATE TABLE IF NOT EXISTS author_file_ownership (
			username      TEXT NOT NULL,
			repo_name     TEXT NOT NULL,
			window_days   INTEGER NOT NULL,
			start_date    TEXT NOT NULL,
			end_date      TEXT NOT NULL,
			file_id       TEXT NOT NULL,
			file_path     TEXT NOT NULL DEFAULT '',
			ownership_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
			author_lines  INTEGER NOT NULL DEFAULT 0,
			total_lines   INTEGER NOT NULL DEFAULT 0,
			last_touched  ` + tsT + `,
			updated_at    ` + tsT + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (username, repo_name, window_days, start_date, end_date, file_id)
		)`,

		`CREATE TABLE IF NOT EXISTS author_prs_window (
			username           TEXT NOT NULL,
			repo_name          TEXT NOT NULL,
			window_days        INTEGER NOT NULL,
			start_date         TEXT NOT NULL,
			end_date           TEXT NOT NULL,
			pr_number          INTEGER NOT NULL,
			title              TEXT NOT NULL DEFAULT '',
			pr_summary         TEXT NOT NULL DEFAULT '',
			merged_at          ` + tsT + `,
			risk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
			high_risk          BOOLEAN NOT NULL DEFAULT FALSE,
			feature_rule       TEXT NOT NULL DEFAULT 'excluded',
			feature_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at         ` + tsT + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (username, repo_name, window_days, start_date, end_date, pr_number)
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS repo_prs (
			repo_name          TEXT NOT NULL,
			pr_number          INTEGER NOT NULL,
			title              TEXT NOT NULL DEFAULT '',
			pr_summary         TEXT NOT NULL DEFAULT '',
			author             TEXT NOT NULL DEFAULT '',
			created_at         %s,
			merged_at          %s,
			is_merged          BOOLEAN NOT NULL DEFAULT FALSE,
			additions          INTEGER NOT NULL DEFAULT 0,
			deletions          INTEGER NOT NULL DEFAULT 0,
			changed_files      INTEGER NOT NULL DEFAULT 0,
			labels_full        %s NOT NULL DEFAULT '[]',
			feature_rule       TEXT NOT NULL DEFAULT 'excluded',
			feature_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
			high_risk          BOOLEAN NOT NULL DEFAULT FALSE,
			risk_reasons       %s NOT NULL DEFAULT '[]',
			top_risky_files    %s NOT NULL DEFAULT '[]',
			updated_at         %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (repo_name, pr_number)
		)`, tsT, tsT, jsonT, jsonT, jsonT, tsT),

		`CREATE INDEX IF NOT EXISTS repo_prs_merged_at_idx ON repo_prs (repo_name, merged_at)`,
		`CREATE INDEX IF NOT EXISTS author_metrics_window_repo_idx ON author_metrics_window (repo_name, window_days)`,
		`CREATE INDEX IF NOT EXISTS author_file_ownership_repo_idx ON author_file_ownership (repo_name, window_days)`,
	}
}
