package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmrzaf/mockagen/internal/app"
	"github.com/mmrzaf/mockagen/internal/config"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
	"github.com/mmrzaf/mockagen/internal/logging"
	"github.com/mmrzaf/mockagen/internal/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	documentsDir string
	targetsDir   string
	runsDBPath   string
	metaDBDSN    string
	logLevel     string
	batchSize    int
	defaultMode  string
)

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "mockagen",
		Short:         "Mock data generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&documentsDir, "documents-dir", cfg.DocumentsDir, "Documents directory")
	rootCmd.PersistentFlags().StringVar(&targetsDir, "targets-dir", cfg.TargetsDir, "Targets directory")
	rootCmd.PersistentFlags().StringVar(&runsDBPath, "runs-db", cfg.RunsDBPath, "Runs database path")
	rootCmd.PersistentFlags().StringVar(&metaDBDSN, "db", cfg.MetaDBDSN, "Metadata database DSN (PostgreSQL); overrides --runs-db")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", cfg.BatchSize, "Insert batch size")
	defaultMode = cfg.DefaultMode

	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(sampleCmd())
	rootCmd.AddCommand(targetCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newDocumentRepo(dir string) (*documents.FileRepository, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	return documents.NewFileRepository(dir, validator), nil
}

// documentService serves commands that only read documents, so no run
// database is opened.
func documentService(dir string) (*app.RunService, *documents.FileRepository, error) {
	docRepo, err := newDocumentRepo(dir)
	if err != nil {
		return nil, nil, err
	}
	svc := app.NewRunService(docRepo, targets.NewFileRepository(targetsDir), nil, logging.NewLogger(logLevel), batchSize)
	return svc, docRepo, nil
}

type stack struct {
	runRepo runs.Repository
	targets targets.Reader
	docRepo *documents.FileRepository
	svc     *app.RunService
}

func openStack() (*stack, error) {
	docRepo, err := newDocumentRepo(documentsDir)
	if err != nil {
		return nil, err
	}
	runRepo, targetRepo, err := app.OpenStores(app.StoreConfig{
		TargetsDir: targetsDir,
		RunsDBPath: runsDBPath,
		MetaDBDSN:  metaDBDSN,
	})
	if err != nil {
		return nil, err
	}
	svc := app.NewRunService(docRepo, targetRepo, runRepo, logging.NewLogger(logLevel), batchSize).
		WithDefaultMode(defaultMode)
	return &stack{runRepo: runRepo, targets: targetRepo, docRepo: docRepo, svc: svc}, nil
}

func (s *stack) Close() { _ = s.runRepo.Close() }

// isPath tells a file argument from an id.
func isPath(arg string) bool {
	if strings.ContainsRune(arg, filepath.Separator) || strings.Contains(arg, "/") {
		return true
	}
	switch filepath.Ext(arg) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printYAML goes through JSON so raw JSON fields render as structures.
func printYAML(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
