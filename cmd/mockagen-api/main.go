package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmrzaf/mockagen/internal/api"
	"github.com/mmrzaf/mockagen/internal/app"
	"github.com/mmrzaf/mockagen/internal/config"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/logging"
	"github.com/mmrzaf/mockagen/internal/schema"
	"github.com/mmrzaf/mockagen/internal/web"
)

const shutdownGrace = 15 * time.Second

type options struct {
	documentsDir string
	stores       app.StoreConfig
	bind         string
	logLevel     string
	batchSize    int
	defaultMode  string
}

func parseFlags(cfg *config.Config) options {
	o := options{defaultMode: cfg.DefaultMode}
	flag.StringVar(&o.documentsDir, "documents-dir", cfg.DocumentsDir, "directory of DSL documents")
	flag.StringVar(&o.stores.TargetsDir, "targets-dir", cfg.TargetsDir, "directory of target configs")
	flag.StringVar(&o.stores.RunsDBPath, "runs-db", cfg.RunsDBPath, "SQLite file for runs and DB targets")
	flag.StringVar(&o.stores.MetaDBDSN, "db", cfg.MetaDBDSN, "PostgreSQL DSN for runs and DB targets; overrides --runs-db")
	flag.StringVar(&o.bind, "bind", cfg.BindAddr, "listen address")
	flag.StringVar(&o.logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.IntVar(&o.batchSize, "batch-size", cfg.BatchSize, "rows per insert batch")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags(config.Load())
	logger := logging.NewLogger(o.logLevel).WithComponent("api_main")
	if err := serve(o, logger); err != nil {
		logger.Errorw("server.failed", map[string]any{"error": err})
		os.Exit(1)
	}
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains requests
// and waits for in-flight runs before returning.
func serve(o options, logger *logging.Logger) error {
	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("load document schema: %w", err)
	}
	docRepo := documents.NewFileRepository(o.documentsDir, validator)

	runRepo, targetRepo, err := app.OpenStores(o.stores)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer runRepo.Close()

	runService := app.NewRunService(docRepo, targetRepo, runRepo, logger, o.batchSize).
		WithDefaultMode(o.defaultMode)

	mux := http.NewServeMux()
	web.Routes(mux)
	api.NewHandler(docRepo, targetRepo, runService).Routes(mux)

	srv := &http.Server{
		Addr:              o.bind,
		Handler:           loggingMiddleware(logger.WithComponent("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		logger.Infow("server.listening", map[string]any{"bind": o.bind})
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("server.shutdown_failed", map[string]any{"error": err})
	}
	logger.Infow("server.draining_runs", nil)
	runService.Wait()
	logger.Infow("server.stopped", nil)
	return nil
}
