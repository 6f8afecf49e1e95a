package runs

import (
	"strings"

	"github.com/mmrzaf/mockagen/internal/infra/repos/sqldb"
)

// migrations returns the control-plane schema for d. Column types that differ
// between dialects are written as {ts}, {i64}, {bool} and {serial}.
func migrations(d sqldb.Dialect) []sqldb.Migration {
	types := strings.NewReplacer(
		"{ts}", "TIMESTAMP",
		"{i64}", "INTEGER",
		"{bool}", "INTEGER",
		"{serial}", "INTEGER PRIMARY KEY AUTOINCREMENT",
	)
	if d == sqldb.Postgres {
		types = strings.NewReplacer(
			"{ts}", "TIMESTAMPTZ",
			"{i64}", "BIGINT",
			"{bool}", "BOOLEAN",
			"{serial}", "BIGSERIAL PRIMARY KEY",
		)
	}

	out := make([]sqldb.Migration, len(schema))
	for i, m := range schema {
		stmts := make([]string, len(m.Statements))
		for j, s := range m.Statements {
			stmts[j] = types.Replace(s)
		}
		out[i] = sqldb.Migration{Version: m.Version, Statements: stmts}
	}
	return out
}

var schema = []sqldb.Migration{
	{Version: 1, Statements: []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			document_name TEXT NOT NULL,
			document_version TEXT,
			target_id TEXT NOT NULL,
			target_name TEXT NOT NULL,
			target_kind TEXT NOT NULL,
			seed {i64} NOT NULL,
			mode TEXT NOT NULL DEFAULT '',
			resolved_counts TEXT,
			config_hash TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at {ts} NOT NULL,
			completed_at {ts},
			stats TEXT,
			error TEXT,
			progress_rows_generated {i64} NOT NULL DEFAULT 0,
			progress_rows_total {i64} NOT NULL DEFAULT 0,
			progress_tables_done INTEGER NOT NULL DEFAULT 0,
			progress_tables_total INTEGER NOT NULL DEFAULT 0,
			progress_current_table TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`,
	}},
	{Version: 2, Statements: []string{
		`CREATE TABLE IF NOT EXISTS run_logs (
			id {serial},
			run_id TEXT NOT NULL,
			created_at {ts} NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id, id DESC)`,
	}},
	{Version: 3, Statements: []string{
		`CREATE TABLE IF NOT EXISTS targets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			dsn TEXT NOT NULL,
			database TEXT,
			schema TEXT,
			options_json TEXT,
			created_at {ts} NOT NULL,
			updated_at {ts} NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_targets_name ON targets(name)`,
	}},
	{Version: 4, Statements: []string{
		`CREATE TABLE IF NOT EXISTS target_checks (
			id TEXT PRIMARY KEY,
			target_id TEXT NOT NULL,
			checked_at {ts} NOT NULL,
			ok {bool} NOT NULL,
			latency_ms {i64} NOT NULL,
			server_version TEXT,
			capabilities_json TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_target_checks_target_time ON target_checks(target_id, checked_at DESC)`,
	}},
}
