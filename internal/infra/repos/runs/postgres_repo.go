package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mmrzaf/mockagen/internal/infra/repos/sqldb"
)

const pingTimeout = 10 * time.Second

// PostgresRepository keeps runs, logs and DB targets in a shared PostgreSQL
// database, for deployments with more than one API process.
type PostgresRepository struct {
	sqlRepository
	dsn string
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{
		sqlRepository: sqlRepository{dialect: sqldb.Postgres},
		dsn:           strings.TrimSpace(dsn),
	}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return errors.New("runs: postgres dsn is empty")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("runs: connect: %w", err)
	}
	r.db = db
	return sqldb.Migrate(db, sqldb.Postgres, migrations(sqldb.Postgres))
}
