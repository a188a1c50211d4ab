// Package main is the entry point for the Travel Journal API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"

	"github.com/pkordes/travel-journal/backend/internal/config"
	"github.com/pkordes/travel-journal/backend/internal/handler"
	"github.com/pkordes/travel-journal/backend/internal/metrics"
	"github.com/pkordes/travel-journal/backend/internal/middleware"
	"github.com/pkordes/travel-journal/backend/internal/repo"
	"github.com/pkordes/travel-journal/backend/internal/service"
	"github.com/pkordes/travel-journal/backend/internal/store"
	"github.com/pkordes/travel-journal/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables always win.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer rotating.Close()
		out = io.MultiWriter(os.Stdout, rotating)
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		sqlDB := stdlib.OpenDBFromPool(pool)
		applied, err := migrations.Up(context.Background(), sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", applied)
	}

	// --- Journal storage --------------------------------------------------
	var journalStore store.Store
	switch cfg.JournalStore {
	case config.StoreDisk:
		journalStore = store.NewDiskStore(cfg.JournalStorePath)
	case config.StoreMemory:
		journalStore = store.NewMemoryStore()
	default:
		journalStore = store.NewPostgresStore(pool)
	}
	slog.Info("journal store selected", "backend", cfg.JournalStore)

	// --- Services ---------------------------------------------------------
	collector := metrics.NewCollector("travel_journal")

	journals := service.NewJournalService(
		repo.NewJournalRepo(journalStore, repo.WithLogger(logger)), logger, collector)
	destinations := service.NewDestinationService(repo.NewDestinationRepo(pool), journals, logger)
	sessions := service.NewSessionService(journals, logger, collector,
		service.WithDebounce(cfg.AutosaveDebounce))

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit → metrics.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(middleware.NewMetricsHandler(collector))

	r.Handle("/metrics", collector.Handler())
	r.Mount("/", handler.NewServer(destinations, journals, sessions, logger).Handler())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := shutdown(ctx, srv, sessions); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

type httpShutdowner interface {
	Shutdown(ctx context.Context) error
}

type sessionCloser interface {
	CloseAll(ctx context.Context)
}

// shutdown stops the HTTP server, then flushes every open editor session.
// Sessions hold unsaved text until their debounce fires, so they are closed
// even when the server did not stop cleanly.
func shutdown(ctx context.Context, srv httpShutdowner, sessions sessionCloser) error {
	err := srv.Shutdown(ctx)
	sessions.CloseAll(ctx)
	return err
}
