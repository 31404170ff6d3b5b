// Package main is the entry point for the Trackbook API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/trackbook/backend/internal/config"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/handler"
	"github.com/pkordes/trackbook/backend/internal/location"
	"github.com/pkordes/trackbook/backend/internal/middleware"
	"github.com/pkordes/trackbook/backend/internal/repo"
	"github.com/pkordes/trackbook/backend/internal/service"
	"github.com/pkordes/trackbook/backend/migrations"
)

// pruneInterval is how often expired export files are removed.
const pruneInterval = time.Hour

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run wires every dependency, serves until ctx is cancelled and then shuts
// down gracefully.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	if err := migrate(ctx, pool, logger); err != nil {
		return err
	}

	// --- Events -----------------------------------------------------------
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}
	hub, err := newHub(ctx, rdb, logger)
	if err != nil {
		return err
	}
	defer hub.Close()

	sinks := []events.Sink{{Name: "hub", Publisher: hub}}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka writer close failed", "error", err)
			}
		}()
		sinks = append(sinks, events.Sink{Name: "kafka", Publisher: kp})
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	publisher := events.NewFanout(logger, sinks...)

	// --- Services ---------------------------------------------------------
	tracks := repo.NewTrackRepo(pool)
	arbiter := location.NewArbiter(location.Thresholds{
		SignificantlyNewer:        cfg.SignificantlyNewer,
		SignificantlyLessAccurate: cfg.SignificantlyLessAccurate,
		Freshness:                 cfg.Freshness,
	}, nil)

	recorder := service.NewRecorder(tracks, arbiter, publisher, logger)
	resumed, err := recorder.Resume(ctx)
	if err != nil {
		return err
	}
	logger.Info("recording state restored", "open_tracks", resumed)

	trackSvc := service.NewTrackService(tracks, recorder, publisher, logger)
	exportSvc := service.NewExportService(tracks, cfg.ExportDir, cfg.ExportRetention, logger)
	go exportSvc.RunPruner(ctx, pruneInterval)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBodySize.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", promhttp.Handler())
	srv := handler.NewServer(recorder, trackSvc, exportSvc, hub, logger)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// Websocket streams manage their own deadlines after the upgrade.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete before forcefully closing.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// migrate applies pending goose migrations through a database/sql handle
// that shares the pool's connections. The handle is not closed separately;
// the pool owns the connections.
func migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
	}
	return nil
}

// newHub returns a Redis-backed hub when rdb is set and a local hub otherwise.
func newHub(ctx context.Context, rdb *redis.Client, logger *slog.Logger) (*events.Hub, error) {
	if rdb == nil {
		return events.NewHub(logger), nil
	}
	hub, err := events.NewRedisHub(ctx, rdb, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("redis event relay enabled", "addr", rdb.Options().Addr)
	return hub, nil
}
