package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DocumentsDir string
	TargetsDir   string
	RunsDBPath   string
	// MetaDBDSN, when set, stores runs and targets in PostgreSQL instead of
	// the local SQLite file and target directory.
	MetaDBDSN   string
	LogLevel    string
	BindAddr    string
	DefaultMode string
	BatchSize   int
}

// Load reads MOCKAGEN_* variables. A .env file in the working directory is
// applied first; variables already set in the environment win.
func Load() *Config {
	loadDotEnv(".env")

	return &Config{
		DocumentsDir: getEnv("MOCKAGEN_DOCUMENTS_DIR", "./documents"),
		TargetsDir:   getEnv("MOCKAGEN_TARGETS_DIR", "./targets"),
		RunsDBPath:   getEnv("MOCKAGEN_RUNS_DB", "./mockagen-runs.sqlite"),
		MetaDBDSN:    getEnv("MOCKAGEN_DB", ""),
		LogLevel:     getEnv("MOCKAGEN_LOG_LEVEL", "info"),
		BindAddr:     getEnv("MOCKAGEN_BIND_ADDR", ":8080"),
		DefaultMode:  getEnv("MOCKAGEN_DEFAULT_MODE", "create"),
		BatchSize:    getEnvInt("MOCKAGEN_BATCH_SIZE", 1000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
