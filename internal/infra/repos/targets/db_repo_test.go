package targets

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
)

func newDBRepo(t *testing.T) *DBRepository {
	t.Helper()
	runRepo := runs.NewSQLiteRepository(filepath.Join(t.TempDir(), "mockagen.db"))
	if err := runRepo.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runRepo.Close() })
	return NewSQLiteRepository(runRepo.DB())
}

func TestSQLiteTargetsCRUD(t *testing.T) {
	repo := newDBRepo(t)

	tgt := &domain.TargetConfig{
		Name:     "t1",
		Kind:     "postgres",
		DSN:      "postgres://u:p@localhost:5432/postgres?sslmode=disable",
		Database: "appdb",
		Schema:   "public",
		Options:  map[string]string{"sslmode": "disable"},
	}
	if err := repo.Create(tgt); err != nil {
		t.Fatal(err)
	}
	if tgt.ID == "" {
		t.Fatal("expected id")
	}

	got, err := repo.Get(tgt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "t1" || got.Kind != "postgres" {
		t.Fatalf("unexpected: %#v", got)
	}
	if got.DSN != "postgres://u:p@localhost:5432/postgres?sslmode=disable" {
		t.Fatalf("expected raw DSN in DB-backed read, got %q", got.DSN)
	}
	if got.Database != "appdb" || got.Options["sslmode"] != "disable" {
		t.Fatalf("expected database and options, got %#v", got)
	}
	if byName, err := repo.Get("t1"); err != nil || byName.ID != tgt.ID {
		t.Fatalf("expected lookup by name, got %#v (%v)", byName, err)
	}

	got.Name = "t1b"
	if err := repo.Update(got); err != nil {
		t.Fatal(err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "t1b" {
		t.Fatalf("unexpected list: %#v", list)
	}

	if err := repo.Delete(tgt.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(tgt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Delete(tgt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTargetChecksNewestFirst(t *testing.T) {
	repo := newDBRepo(t)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		c := &domain.TargetCheck{
			TargetID:     "t1",
			CheckedAt:    base.Add(time.Duration(i) * time.Minute),
			OK:           i != 1,
			LatencyMS:    int64(i),
			Capabilities: domain.TargetCapabilities{CanCreate: true},
		}
		if i == 1 {
			c.Error = "connection refused"
		}
		if err := repo.RecordCheck(c); err != nil {
			t.Fatal(err)
		}
	}

	checks, err := repo.ListChecks("t1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}
	if checks[0].LatencyMS != 2 || !checks[0].OK || !checks[0].Capabilities.CanCreate {
		t.Fatalf("unexpected newest check: %#v", checks[0])
	}
	if checks[1].OK || checks[1].Error != "connection refused" {
		t.Fatalf("unexpected second check: %#v", checks[1])
	}
}
