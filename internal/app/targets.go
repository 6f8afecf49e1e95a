package app

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/exec"
	esTarget "github.com/mmrzaf/mockagen/internal/infra/targets/elasticsearch"
	fileTarget "github.com/mmrzaf/mockagen/internal/infra/targets/file"
	pgTarget "github.com/mmrzaf/mockagen/internal/infra/targets/postgres"
	sqliteTarget "github.com/mmrzaf/mockagen/internal/infra/targets/sqlite"
	"github.com/mmrzaf/mockagen/internal/validation"
)

// NewTarget builds the row sink for a target config.
func NewTarget(t *domain.TargetConfig) (exec.Target, error) {
	tgt, _, err := buildTarget(t)
	return tgt, err
}

func buildTarget(t *domain.TargetConfig) (exec.Target, func() (string, error), error) {
	switch t.Kind {
	case domain.TargetKindPostgres:
		return pgTarget.New(t.DSN, t.Schema), func() (string, error) {
			return queryServerVersion("postgres", t.DSN, "SHOW server_version")
		}, nil
	case domain.TargetKindSQLite:
		return sqliteTarget.New(t.DSN), func() (string, error) {
			return queryServerVersion("sqlite3", t.DSN, "SELECT sqlite_version()")
		}, nil
	case domain.TargetKindElasticsearch:
		return esTarget.New(t.DSN), func() (string, error) {
			return esTarget.ServerVersion(t.DSN)
		}, nil
	case domain.TargetKindCSV, domain.TargetKindTSV, domain.TargetKindJSON:
		return fileTarget.NewFileTarget(t.DSN, fileTarget.Format(t.Kind)), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
}

// CheckTarget connects to t and probes whether a table can be created,
// written and truncated. The returned check is filled in even on error.
func CheckTarget(t *domain.TargetConfig) (*domain.TargetCheck, error) {
	check := &domain.TargetCheck{
		ID:        uuid.NewString(),
		TargetID:  t.ID,
		CheckedAt: time.Now().UTC(),
	}

	if err := validation.NewValidator().ValidateTarget(t); err != nil {
		check.Error = err.Error()
		return check, err
	}

	start := time.Now()
	probe := t
	if t.IsFile() {
		// Probe in a scratch directory so the real output is left alone.
		dir, err := os.MkdirTemp("", "mockagen-check-*")
		if err != nil {
			check.Error = err.Error()
			return check, err
		}
		defer os.RemoveAll(dir)
		cp := *t
		cp.DSN = filepath.Join(dir, "out")
		probe = &cp
		if err := writableDir(t.DSN); err != nil {
			check.Error = err.Error()
			return check, err
		}
	}

	probe, err := targetForRun(probe, "")
	if err != nil {
		check.Error = err.Error()
		return check, err
	}
	tgt, verFn, err := buildTarget(probe)
	if err != nil {
		check.Error = err.Error()
		return check, err
	}
	if err := tgt.Connect(); err != nil {
		check.Error = err.Error()
		check.LatencyMS = time.Since(start).Milliseconds()
		return check, err
	}
	defer tgt.Close()

	check.OK = true
	check.LatencyMS = time.Since(start).Milliseconds()
	if verFn != nil {
		if ver, verErr := verFn(); verErr == nil {
			check.ServerVer = ver
		}
	}
	check.Capabilities = probeCapabilities(tgt)
	return check, nil
}

// writableDir reports whether files can be created in dir, creating it if
// needed.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".mockagen-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func queryServerVersion(driver, dsn, query string) (string, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()
	var version string
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func probeCapabilities(tgt exec.Target) domain.TargetCapabilities {
	table := &domain.Table{
		Name:        "mockagen_check",
		TargetTable: fmt.Sprintf("mockagen_check_%d", time.Now().UnixNano()),
		Rows:        1,
		Columns: []domain.Column{
			{Name: "id", Type: domain.ColumnTypeInt},
		},
	}

	var caps domain.TargetCapabilities
	if err := tgt.CreateTableIfNotExists(table); err != nil {
		return caps
	}
	caps.CanCreate = true

	if err := tgt.InsertBatch(table.TargetTable, []string{"id"}, [][]domain.Value{{domain.IntValue(1)}}); err != nil {
		return caps
	}
	caps.CanInsert = true

	if err := tgt.TruncateTable(table.TargetTable); err != nil {
		return caps
	}
	caps.CanTruncate = true
	return caps
}
