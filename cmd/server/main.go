package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"golang.org/x/sync/errgroup"

	"synthlab/internal/api"
	"synthlab/internal/config"
	internaldb "synthlab/internal/db"
	"synthlab/internal/db/repository"
	"synthlab/internal/preview"
	recipesvc "synthlab/internal/service/recipe"
)

func main() {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// Open DuckDB for preview materialization. An empty DSN gives an
	// in-memory database; source tables are attached or created out of band.
	previewDB, err := sql.Open("duckdb", cfg.PreviewDB)
	if err != nil {
		log.Fatalf("open duckdb: %v", err)
	}
	defer previewDB.Close()

	// Open the SQLite metastore with hardened connection settings.
	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  4-connection pool for concurrent reads (WAL, no txlock).
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		log.Fatalf("open metastore: %v", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	// Run migrations on the write pool (DDL requires write access)
	if err := internaldb.RunMigrations(writeDB); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// Repositories — write-pool for repos that mutate, read-pool for the rest.
	datasetRepo := repository.NewDatasetRepository(writeDB, readDB)
	stepRepo := repository.NewStepRepository(writeDB, readDB)
	sourceRepo := repository.NewSourceGraphRepository(writeDB, readDB)
	auditRepo := repository.NewAuditRepository(writeDB, readDB)

	previewEngine := preview.NewEngine(previewDB, logger, cfg.PreviewRowLimit)

	svc := recipesvc.NewService(datasetRepo, stepRepo, sourceRepo, auditRepo, previewEngine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := recipesvc.NewScheduler(svc, datasetRepo, logger)
	svc.SetScheduleReloader(scheduler)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer scheduler.Stop()

	handler := api.NewHandler(svc, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
