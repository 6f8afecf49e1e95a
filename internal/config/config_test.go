package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ReadsDotEnv(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	d := t.TempDir()
	env := "# local overrides\nMOCKAGEN_DB=postgres://u:p@localhost:5432/mockagen?sslmode=disable\nexport MOCKAGEN_LOG_LEVEL=\"debug\"\nMOCKAGEN_BATCH_SIZE=250\n"
	if err := os.WriteFile(filepath.Join(d, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(d); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"MOCKAGEN_DB", "MOCKAGEN_LOG_LEVEL", "MOCKAGEN_BATCH_SIZE"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.MetaDBDSN != "postgres://u:p@localhost:5432/mockagen?sslmode=disable" {
		t.Fatalf("expected MOCKAGEN_DB from .env, got %q", cfg.MetaDBDSN)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected MOCKAGEN_LOG_LEVEL from .env, got %q", cfg.LogLevel)
	}
	if cfg.BatchSize != 250 {
		t.Fatalf("expected batch size 250, got %d", cfg.BatchSize)
	}
}

func TestLoad_EnvironmentWinsOverDotEnv(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	d := t.TempDir()
	if err := os.WriteFile(filepath.Join(d, ".env"), []byte("MOCKAGEN_BIND_ADDR=:9999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(d); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOCKAGEN_BIND_ADDR", ":7000")

	cfg := Load()
	if cfg.BindAddr != ":7000" {
		t.Fatalf("expected environment to win, got %q", cfg.BindAddr)
	}
	if cfg.DefaultMode != "create" {
		t.Fatalf("unexpected default mode %q", cfg.DefaultMode)
	}
}
