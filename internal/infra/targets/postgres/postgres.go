// Package postgres writes generated tables into PostgreSQL with COPY.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mmrzaf/mockagen/internal/domain"
)

const DefaultSchema = "public"

type Target struct {
	dsn    string
	schema string
	db     *sql.DB
}

func New(dsn, schema string) *Target {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Target{dsn: dsn, schema: schema}
}

// Connect opens the database and makes sure the target schema exists.
func (t *Target) Connect() error {
	db, err := sql.Open("postgres", t.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	if t.schema != DefaultSchema {
		if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(t.schema)); err != nil {
			_ = db.Close()
			return fmt.Errorf("create schema %s: %w", t.schema, err)
		}
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
	_, err := t.db.Exec(CreateTableSQL(t.schema, table))
	return err
}

// CreateTableSQL renders an idempotent CREATE TABLE for table in schema.
func CreateTableSQL(schema string, table *domain.Table) string {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		def := pq.QuoteIdentifier(col.Name) + " " + sqlType(col.Type)
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified(schema, table.Destination()), strings.Join(defs, ", "))
}

func sqlType(colType domain.ColumnType) string {
	switch colType {
	case domain.ColumnTypeInt:
		return "INTEGER"
	case domain.ColumnTypeBigInt:
		return "BIGINT"
	case domain.ColumnTypeFloat:
		return "REAL"
	case domain.ColumnTypeDouble:
		return "DOUBLE PRECISION"
	case domain.ColumnTypeTimestamp:
		return "TIMESTAMP"
	case domain.ColumnTypeDate:
		return "DATE"
	case domain.ColumnTypeUUID:
		return "UUID"
	default:
		return "TEXT"
	}
}

func qualified(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func (t *Target) TruncateTable(tableName string) error {
	_, err := t.db.Exec("TRUNCATE TABLE " + qualified(t.schema, tableName))
	return err
}

// InsertBatch streams rows through COPY inside one transaction.
func (t *Target) InsertBatch(tableName string, columns []string, rows [][]domain.Value) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyInSchema(t.schema, tableName, columns...))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for n, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("table %s: row %d has %d values for %d columns", tableName, n, len(row), len(columns))
		}
		for i, v := range row {
			args[i] = v.Native()
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	// An empty Exec flushes the COPY buffer.
	if _, err := stmt.Exec(); err != nil {
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}
