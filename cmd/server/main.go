// Command server runs the event feed HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpbigquery "cloud.google.com/go/bigquery"
	"github.com/bradfitz/gomemcache/memcache"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"event-feed/internal/app"
	"event-feed/internal/cache"
	"event-feed/internal/config"
	"event-feed/internal/domain"
	bqengine "event-feed/internal/engine/bigquery"
	duckengine "event-feed/internal/engine/duckdb"
	"event-feed/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	if cfg.CacheAddr != "" {
		client := memcache.New(cfg.CacheAddr)
		client.Timeout = 500 * time.Millisecond
		store = cache.NewMemcached(client)
		logger.Info("session store: memcached", "addr", cfg.CacheAddr)
	} else {
		store = cache.NewMemory()
		logger.Info("session store: in-process")
	}

	engine, cleanup, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	historyDB, err := sql.Open("sqlite3", cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer historyDB.Close() //nolint:errcheck

	a, err := app.New(app.Deps{
		Cfg:       cfg,
		Store:     store,
		Engine:    engine,
		HistoryDB: historyDB,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	a.Handler.Routes(r)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.ListenAddr, "engine", cfg.Engine)
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
	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newEngine builds the configured query backend and a cleanup for its handle.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.QueryEngine, func(), error) {
	switch cfg.Engine {
	case config.EngineBigQuery:
		client, err := gcpbigquery.NewClient(ctx, cfg.BigQueryProject)
		if err != nil {
			return nil, nil, fmt.Errorf("create bigquery client: %w", err)
		}
		eng := bqengine.New(client, cfg.BigQueryLocation, logger.With("component", "bigquery"))
		return eng, func() { _ = client.Close() }, nil
	default:
		db, err := sql.Open("duckdb", cfg.DuckDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open duckdb: %w", err)
		}
		eng := duckengine.New(db, cfg.JobTTL, logger.With("component", "duckdb"))
		return eng, func() { _ = db.Close() }, nil
	}
}
