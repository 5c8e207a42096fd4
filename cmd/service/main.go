// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-activity-feed/internal/api"
	"github-activity-feed/internal/catalog"
	"github-activity-feed/internal/config"
	"github-activity-feed/internal/database"
	"github-activity-feed/internal/feed"
	"github-activity-feed/internal/github"
	"github-activity-feed/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "repos", len(cfg.ReposToSync), "http_addr", cfg.HTTPAddr)

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("Database connection established")

	if err := runMigrations(cfg.MigrationsPath, cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	store := database.NewStore(dbpool)

	ghOpts := []github.Option{github.WithTimeout(cfg.FetchTimeout)}
	if cfg.GithubBaseURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GithubBaseURL))
	}
	ghClient, err := github.NewClient(cfg.GithubToken, logger, ghOpts...)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}
	if cfg.GithubToken == "" {
		logger.Warn("GITHUB_TOKEN is not set, using unauthenticated rate limits")
	}

	appSyncer, err := syncer.NewSyncer(store, ghClient, logger, cfg.ReposToSync, syncer.Options{
		Window:         cfg.SyncWindow,
		Interval:       cfg.SyncInterval,
		Concurrency:    cfg.Concurrency,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		RunTimeout:     cfg.RunTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	engine := feed.NewEngine(store, logger)
	svc := catalog.NewService(store, appSyncer, logger)

	// 6. Start the syncer in a separate goroutine
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		appSyncer.Start(ctx)
	}()

	// 7. Serve the API until a shutdown signal arrives
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(engine, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-syncDone
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	cancel()
	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		logger.Warn("Syncer did not stop before the shutdown deadline")
	}
	logger.Info("Shutdown complete")
	return nil
}

func runMigrations(source, dbURL string) error {
	m, err := migrate.New(source, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
