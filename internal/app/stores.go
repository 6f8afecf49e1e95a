package app

import (
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
)

// StoreConfig says where run history and targets live.
type StoreConfig struct {
	TargetsDir string
	RunsDBPath string
	// MetaDBDSN selects PostgreSQL for run history and stored targets.
	MetaDBDSN string
}

// OpenStores opens the run repository and a target reader that combines the
// targets directory with targets stored in the same DB. File targets win on
// duplicate ids. The reader also implements targets.Store, writing to the DB.
func OpenStores(cfg StoreConfig) (runs.Repository, targets.Reader, error) {
	var (
		runRepo runs.Repository
		dbRepo  *targets.DBRepository
	)
	if cfg.MetaDBDSN != "" {
		pg := runs.NewPostgresRepository(cfg.MetaDBDSN)
		if err := pg.Init(); err != nil {
			return nil, nil, err
		}
		runRepo, dbRepo = pg, targets.NewPostgresRepository(pg.DB())
	} else {
		lite := runs.NewSQLiteRepository(cfg.RunsDBPath)
		if err := lite.Init(); err != nil {
			return nil, nil, err
		}
		runRepo, dbRepo = lite, targets.NewSQLiteRepository(lite.DB())
	}

	files := targets.NewFileRepository(cfg.TargetsDir)
	return runRepo, &targetStore{DBRepository: dbRepo, chain: targets.Chain{files, dbRepo}}, nil
}

// targetStore writes to the DB and reads from files and the DB.
type targetStore struct {
	*targets.DBRepository
	chain targets.Chain
}

func (s *targetStore) List() ([]*domain.TargetConfig, error) { return s.chain.List() }

func (s *targetStore) Get(id string) (*domain.TargetConfig, error) { return s.chain.Get(id) }
