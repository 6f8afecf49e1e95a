package domain

import (
	"encoding/json"
	"time"
)

// Document is one definition file: generator definitions plus the tables
// that are generated from them.
type Document struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Version     string       `json:"version,omitempty" yaml:"version,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Seed        *int64       `json:"seed,omitempty" yaml:"seed,omitempty"`
	Include     []string     `json:"include,omitempty" yaml:"include,omitempty"`
	Definitions []Definition `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Tables      []Table      `json:"tables,omitempty" yaml:"tables,omitempty"`

	// SourcePath is the file the document was read from, relative to the
	// document directory. Includes resolve against it.
	SourcePath string `json:"-" yaml:"-"`
}

type Table struct {
	Name        string   `json:"name" yaml:"name"`
	TargetTable string   `json:"target_table" yaml:"target_table"`
	Rows        int64    `json:"rows" yaml:"rows"`
	Columns     []Column `json:"columns" yaml:"columns"`
	TableMode   string   `json:"table_mode,omitempty" yaml:"table_mode,omitempty"`
}

// Destination is the table or index rows are written to.
func (t *Table) Destination() string {
	if t.TargetTable != "" {
		return t.TargetTable
	}
	return t.Name
}

// ColumnNames returns the output column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIdentifiers returns the generator identifiers backing each column, in
// column order.
func (t *Table) ColumnIdentifiers() []string {
	ids := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		ids[i] = col.Identifier()
	}
	return ids
}

type Column struct {
	Name     string     `json:"name" yaml:"name"`
	Source   string     `json:"source,omitempty" yaml:"source,omitempty"`
	Type     ColumnType `json:"type,omitempty" yaml:"type,omitempty"`
	Nullable bool       `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// Identifier is the generator identifier for the column; Source when set,
// otherwise the column name.
func (c Column) Identifier() string {
	if c.Source != "" {
		return c.Source
	}
	return c.Name
}

type ColumnType string

const (
	ColumnTypeInt       ColumnType = "int"
	ColumnTypeBigInt    ColumnType = "bigint"
	ColumnTypeFloat     ColumnType = "float"
	ColumnTypeDouble    ColumnType = "double"
	ColumnTypeString    ColumnType = "string"
	ColumnTypeText      ColumnType = "text"
	ColumnTypeTimestamp ColumnType = "timestamp"
	ColumnTypeDate      ColumnType = "date"
	ColumnTypeUUID      ColumnType = "uuid"
)

type TargetConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Kind     string            `json:"kind" yaml:"kind"`
	DSN      string            `json:"dsn" yaml:"dsn"`
	Database string            `json:"database,omitempty" yaml:"database,omitempty"`
	Schema   string            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsFile reports whether the target writes local files rather than talking
// to a server.
func (t *TargetConfig) IsFile() bool {
	switch t.Kind {
	case TargetKindCSV, TargetKindTSV, TargetKindJSON:
		return true
	}
	return false
}

type TargetCheck struct {
	ID           string             `json:"id"`
	TargetID     string             `json:"target_id"`
	CheckedAt    time.Time          `json:"checked_at"`
	OK           bool               `json:"ok"`
	LatencyMS    int64              `json:"latency_ms"`
	ServerVer    string             `json:"server_version,omitempty"`
	Capabilities TargetCapabilities `json:"capabilities"`
	Error        string             `json:"error,omitempty"`
}

type TargetCapabilities struct {
	CanCreate   bool `json:"can_create"`
	CanInsert   bool `json:"can_insert"`
	CanTruncate bool `json:"can_truncate"`
}

const (
	TargetKindSQLite        = "sqlite"
	TargetKindPostgres      = "postgres"
	TargetKindElasticsearch = "elasticsearch"
	TargetKindCSV           = "csv"
	TargetKindTSV           = "tsv"
	TargetKindJSON          = "json"
)

type Run struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"document_id"`
	DocumentName    string          `json:"document_name"`
	DocumentVersion string          `json:"document_version"`
	TargetID        string          `json:"target_id"`
	TargetName      string          `json:"target_name"`
	TargetKind      string          `json:"target_kind"`
	Seed            int64           `json:"seed"`
	Mode            string          `json:"mode"`
	ResolvedCounts  json.RawMessage `json:"resolved_counts,omitempty"`
	ConfigHash      string          `json:"config_hash"`
	Status          RunStatus       `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Stats           json.RawMessage `json:"stats,omitempty"`
	Error           string          `json:"error,omitempty"`

	ProgressRowsGenerated int64  `json:"progress_rows_generated"`
	ProgressRowsTotal     int64  `json:"progress_rows_total"`
	ProgressTablesDone    int    `json:"progress_tables_done"`
	ProgressTablesTotal   int    `json:"progress_tables_total"`
	ProgressCurrentTable  string `json:"progress_current_table,omitempty"`
}

// RunProgress is a snapshot reported while a run writes its tables.
type RunProgress struct {
	RowsGenerated int64
	RowsTotal     int64
	TablesDone    int
	TablesTotal   int
	CurrentTable  string
}

type RunLog struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunStats struct {
	TablesGenerated int             `json:"tables_generated"`
	TotalRows       int64           `json:"total_rows"`
	DurationSeconds float64         `json:"duration_seconds"`
	TableStats      []TableRunStats `json:"table_stats"`
}

type TableRunStats struct {
	TableName       string  `json:"table_name"`
	RowsGenerated   int64   `json:"rows_generated"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type RunRequest struct {
	DocumentID string        `json:"document_id,omitempty"`
	Document   *Document     `json:"document,omitempty"`
	TargetID   string        `json:"target_id,omitempty"`
	Target     *TargetConfig `json:"target,omitempty"`
	Seed       *int64        `json:"seed,omitempty"`
	Mode       string        `json:"mode,omitempty"`

	// TargetDatabase overrides the database of a postgres target.
	TargetDatabase string `json:"target_database,omitempty"`

	// Scale multiplies every table's row count; TableCounts sets counts
	// outright and wins over Scale.
	Scale         *float64         `json:"scale,omitempty"`
	TableCounts   map[string]int64 `json:"table_counts,omitempty"`
	IncludeTables []string         `json:"include_tables,omitempty"`
	ExcludeTables []string         `json:"exclude_tables,omitempty"`
}

// PreviewRequest asks for sample rows without writing to a target.
type PreviewRequest struct {
	DocumentID string   `json:"document_id"`
	Columns    []string `json:"columns"`
	Rows       int      `json:"rows"`
	Seed       *int64   `json:"seed,omitempty"`
}

const (
	TableModeCreate   = "create"
	TableModeTruncate = "truncate"
	TableModeAppend   = "append"
)
