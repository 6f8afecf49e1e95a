// Package sqldb holds the small amount of SQL plumbing shared by the
// control-plane repositories: placeholder rebinding and versioned migrations.
package sqldb

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// Rebind rewrites '?' placeholders for the dialect. Queries must not contain
// literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Migration struct {
	Version    int
	Statements []string
}

// Migrate applies every migration newer than the recorded schema version, in
// order, recording each one as it succeeds.
func Migrate(db *sql.DB, d Dialect, migs []Migration) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var cur int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&cur); err != nil {
		return err
	}

	for _, m := range migs {
		if cur >= m.Version {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
		}
		if _, err := db.Exec(d.Rebind(`INSERT INTO schema_migrations(version) VALUES (?)`), m.Version); err != nil {
			return err
		}
		cur = m.Version
	}
	return nil
}

// NullIfEmpty maps "" to SQL NULL.
func NullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
