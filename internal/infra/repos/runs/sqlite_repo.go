package runs

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/mockagen/internal/infra/repos/sqldb"
)

type SQLiteRepository struct {
	sqlRepository
	dbPath string
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{
		sqlRepository: sqlRepository{dialect: sqldb.SQLite},
		dbPath:        dbPath,
	}
}

func (r *SQLiteRepository) Init() error {
	if dir := filepath.Dir(r.dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create runs db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", r.dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return err
	}
	// One writer at a time; async runs update progress while the API reads.
	db.SetMaxOpenConns(1)
	r.db = db
	return sqldb.Migrate(db, sqldb.SQLite, migrations(sqldb.SQLite))
}
