package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/sqldb"
)

var ErrNotFound = errors.New("run not found")

// Repository stores run metadata, progress and logs in the mockagen control
// plane DB. The same DB also holds the targets tables.
type Repository interface {
	Init() error
	DB() *sql.DB
	Close() error

	Create(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status string) ([]*domain.Run, error)
	UpdateStatus(id string, status domain.RunStatus, errMsg string, stats *domain.RunStats) error
	UpdateProgress(id string, p domain.RunProgress) error
	AppendRunLog(runID, level, message string) error
	ListRunLogs(runID string, limit int) ([]*domain.RunLog, error)
}

type sqlRepository struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func (r *sqlRepository) DB() *sql.DB { return r.db }

func (r *sqlRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const runColumns = `id, document_id, document_name, document_version,
	target_id, target_name, target_kind,
	seed, mode, resolved_counts, config_hash, status, started_at, completed_at, stats, error,
	progress_rows_generated, progress_rows_total, progress_tables_done, progress_tables_total, progress_current_table`

func (r *sqlRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}

	_, err := r.db.Exec(r.dialect.Rebind(`
	INSERT INTO runs (`+runColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.DocumentID, run.DocumentName, run.DocumentVersion,
		run.TargetID, run.TargetName, run.TargetKind,
		run.Seed, run.Mode, sqldb.NullIfEmpty(string(run.ResolvedCounts)), run.ConfigHash, run.Status,
		run.StartedAt, completedAt, sqldb.NullIfEmpty(string(run.Stats)), sqldb.NullIfEmpty(run.Error),
		run.ProgressRowsGenerated, run.ProgressRowsTotal, run.ProgressTablesDone, run.ProgressTablesTotal,
		sqldb.NullIfEmpty(run.ProgressCurrentTable),
	)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var run domain.Run
	var (
		docVersion  sql.NullString
		counts      sql.NullString
		completedAt sql.NullTime
		stats       sql.NullString
		errStr      sql.NullString
		current     sql.NullString
	)
	err := s.Scan(
		&run.ID, &run.DocumentID, &run.DocumentName, &docVersion,
		&run.TargetID, &run.TargetName, &run.TargetKind,
		&run.Seed, &run.Mode, &counts, &run.ConfigHash, &run.Status, &run.StartedAt, &completedAt, &stats, &errStr,
		&run.ProgressRowsGenerated, &run.ProgressRowsTotal, &run.ProgressTablesDone, &run.ProgressTablesTotal, &current,
	)
	if err != nil {
		return nil, err
	}
	run.DocumentVersion = docVersion.String
	if counts.Valid {
		run.ResolvedCounts = json.RawMessage(counts.String)
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if stats.Valid {
		run.Stats = json.RawMessage(stats.String)
	}
	run.Error = errStr.String
	run.ProgressCurrentTable = current.String
	return &run, nil
}

func (r *sqlRepository) Get(id string) (*domain.Run, error) {
	run, err := scanRun(r.db.QueryRow(r.dialect.Rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (r *sqlRepository) List(limit int, status string) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]interface{}, 0, 2)
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *sqlRepository) UpdateStatus(id string, status domain.RunStatus, errMsg string, stats *domain.RunStats) error {
	now := sql.NullTime{}
	if status == domain.RunStatusSuccess || status == domain.RunStatusFailed {
		now = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	var statsJSON interface{}
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		statsJSON = string(b)
	}

	res, err := r.db.Exec(r.dialect.Rebind(`
	UPDATE runs
	SET status = ?, completed_at = COALESCE(?, completed_at), stats = COALESCE(?, stats), error = ?
	WHERE id = ?`),
		status, now, statsJSON, sqldb.NullIfEmpty(errMsg), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sqlRepository) UpdateProgress(id string, p domain.RunProgress) error {
	res, err := r.db.Exec(r.dialect.Rebind(`
	UPDATE runs
	SET progress_rows_generated = ?, progress_rows_total = ?,
		progress_tables_done = ?, progress_tables_total = ?, progress_current_table = ?
	WHERE id = ?`),
		p.RowsGenerated, p.RowsTotal, p.TablesDone, p.TablesTotal, sqldb.NullIfEmpty(p.CurrentTable), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sqlRepository) AppendRunLog(runID, level, message string) error {
	_, err := r.db.Exec(r.dialect.Rebind(`
	INSERT INTO run_logs (run_id, created_at, level, message) VALUES (?, ?, ?, ?)`),
		runID, time.Now().UTC(), level, message,
	)
	return err
}

// ListRunLogs returns the newest limit entries, most recent first.
func (r *sqlRepository) ListRunLogs(runID string, limit int) ([]*domain.RunLog, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.Query(r.dialect.Rebind(`
	SELECT id, run_id, created_at, level, message
	FROM run_logs
	WHERE run_id = ?
	ORDER BY id DESC
	LIMIT ?`), runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RunLog
	for rows.Next() {
		var l domain.RunLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.CreatedAt, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
