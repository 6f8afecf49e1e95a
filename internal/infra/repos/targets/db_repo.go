package targets

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/sqldb"
)

// DBRepository keeps targets in the control plane DB. Its tables are created
// by the runs repository migrations.
type DBRepository struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewSQLiteRepository(db *sql.DB) *DBRepository {
	return &DBRepository{db: db, dialect: sqldb.SQLite}
}

func NewPostgresRepository(db *sql.DB) *DBRepository {
	return &DBRepository{db: db, dialect: sqldb.Postgres}
}

const targetColumns = `id, name, kind, dsn, database, schema, options_json`

func scanTarget(s interface{ Scan(...interface{}) error }) (*domain.TargetConfig, error) {
	var t domain.TargetConfig
	var database, schema, opt sql.NullString
	if err := s.Scan(&t.ID, &t.Name, &t.Kind, &t.DSN, &database, &schema, &opt); err != nil {
		return nil, err
	}
	t.Database = database.String
	t.Schema = schema.String
	if opt.Valid && opt.String != "" {
		if err := json.Unmarshal([]byte(opt.String), &t.Options); err != nil {
			return nil, fmt.Errorf("target %s options: %w", t.ID, err)
		}
	}
	return &t, nil
}

func (r *DBRepository) List() ([]*domain.TargetConfig, error) {
	rows, err := r.db.Query(`SELECT ` + targetColumns + ` FROM targets ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.TargetConfig, 0)
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *DBRepository) Get(id string) (*domain.TargetConfig, error) {
	t, err := scanTarget(r.db.QueryRow(r.dialect.Rebind(`SELECT `+targetColumns+` FROM targets WHERE id = ? OR name = ?`), id, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func optionsJSON(t *domain.TargetConfig) (string, error) {
	if len(t.Options) == 0 {
		return "", nil
	}
	b, err := json.Marshal(t.Options)
	return string(b), err
}

func (r *DBRepository) Create(t *domain.TargetConfig) error {
	if t == nil {
		return errors.New("nil target")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	opt, err := optionsJSON(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	_, err = r.db.Exec(r.dialect.Rebind(`
		INSERT INTO targets (id, name, kind, dsn, database, schema, options_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Name, t.Kind, t.DSN, sqldb.NullIfEmpty(t.Database), sqldb.NullIfEmpty(t.Schema), sqldb.NullIfEmpty(opt), now, now)
	return err
}

func (r *DBRepository) Update(t *domain.TargetConfig) error {
	if t == nil {
		return errors.New("nil target")
	}
	if t.ID == "" {
		return errors.New("missing target id")
	}
	opt, err := optionsJSON(t)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(r.dialect.Rebind(`
		UPDATE targets
		SET name = ?, kind = ?, dsn = ?, database = ?, schema = ?, options_json = ?, updated_at = ?
		WHERE id = ?`),
		t.Name, t.Kind, t.DSN, sqldb.NullIfEmpty(t.Database), sqldb.NullIfEmpty(t.Schema), sqldb.NullIfEmpty(opt), time.Now().UTC(), t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, t.ID)
}

func (r *DBRepository) Delete(id string) error {
	res, err := r.db.Exec(r.dialect.Rebind(`DELETE FROM targets WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func (r *DBRepository) RecordCheck(c *domain.TargetCheck) error {
	if c == nil {
		return errors.New("nil check")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	caps, err := json.Marshal(c.Capabilities)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(r.dialect.Rebind(`
		INSERT INTO target_checks (id, target_id, checked_at, ok, latency_ms, server_version, capabilities_json, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.TargetID, c.CheckedAt, c.OK, c.LatencyMS, sqldb.NullIfEmpty(c.ServerVer), string(caps), sqldb.NullIfEmpty(c.Error))
	return err
}

// ListChecks returns the most recent checks first.
func (r *DBRepository) ListChecks(targetID string, limit int) ([]*domain.TargetCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(r.dialect.Rebind(`
		SELECT id, target_id, checked_at, ok, latency_ms, server_version, capabilities_json, error
		FROM target_checks
		WHERE target_id = ?
		ORDER BY checked_at DESC
		LIMIT ?`), targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TargetCheck
	for rows.Next() {
		var c domain.TargetCheck
		var server, caps, errStr sql.NullString
		if err := rows.Scan(&c.ID, &c.TargetID, &c.CheckedAt, &c.OK, &c.LatencyMS, &server, &caps, &errStr); err != nil {
			return nil, err
		}
		c.ServerVer = server.String
		c.Error = errStr.String
		if caps.Valid && caps.String != "" {
			_ = json.Unmarshal([]byte(caps.String), &c.Capabilities)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
