// Package sqlite writes generated tables into a SQLite database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/mockagen/internal/domain"
)

// maxVariables is SQLite's default bound-parameter limit per statement.
const maxVariables = 999

type Target struct {
	path string
	db   *sql.DB
}

func New(path string) *Target {
	return &Target{path: path}
}

// Connect opens the database file, creating its directory when missing.
func (t *Target) Connect() error {
	file, _, _ := strings.Cut(t.path, "?")
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	sep := "?"
	if strings.Contains(t.path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", t.path+sep+"_busy_timeout=5000")
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	t.db = db
	return nil
}

func (t *Target) Close() error {
	if t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	return err
}

func (t *Target) CreateTableIfNotExists(table *domain.Table) error {
	_, err := t.db.Exec(CreateTableSQL(table))
	return err
}

// CreateTableSQL renders an idempotent CREATE TABLE for table.
func CreateTableSQL(table *domain.Table) string {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		def := quote(col.Name) + " " + affinity(col.Type)
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table.Destination()), strings.Join(defs, ", "))
}

// affinity maps a column type to a SQLite type affinity. Dates, timestamps
// and uuids are stored as text.
func affinity(colType domain.ColumnType) string {
	switch colType {
	case domain.ColumnTypeInt, domain.ColumnTypeBigInt:
		return "INTEGER"
	case domain.ColumnTypeFloat, domain.ColumnTypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (t *Target) TruncateTable(tableName string) error {
	_, err := t.db.Exec("DELETE FROM " + quote(tableName))
	return err
}

// InsertBatch writes rows in one transaction using multi-row INSERTs sized to
// stay under the parameter limit.
func (t *Target) InsertBatch(tableName string, columns []string, rows [][]domain.Value) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s: no columns", tableName)
	}

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	perStmt := maxVariables / len(columns)
	if perStmt < 1 {
		return fmt.Errorf("table %s: %d columns exceed the SQLite parameter limit", tableName, len(columns))
	}

	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			if len(row) != len(columns) {
				return fmt.Errorf("table %s: row has %d values for %d columns", tableName, len(row), len(columns))
			}
			for _, v := range row {
				args = append(args, v.Serializable())
			}
		}
		if _, err := tx.Exec(insertSQL(tableName, columns, len(chunk)), args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSQL(tableName string, columns []string, nRows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quote(tableName), strings.Join(quoted, ", "))
	for i := 0; i < nRows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
