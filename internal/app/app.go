// Package app provides application-level wiring for the event feed service.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"event-feed/internal/api"
	"event-feed/internal/cache"
	"event-feed/internal/catalog"
	"event-feed/internal/config"
	"event-feed/internal/domain"
	"event-feed/internal/history"
	"event-feed/internal/session"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// the cache store, the query engine, and the history database handle.
type Deps struct {
	Cfg       *config.Config
	Store     cache.Store
	Engine    domain.QueryEngine
	HistoryDB *sql.DB
	Logger    *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Handler      *api.Handler
	Orchestrator *session.Orchestrator
	Resolver     *catalog.Resolver
	History      *history.Repo
}

// New wires the resolver, session core, history repository, and HTTP handler
// from the provided deps.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver, err := catalog.Load(cfg.TableMapPath)
	if err != nil {
		return nil, fmt.Errorf("load table map: %w", err)
	}
	logger.Info("table map loaded", "path", cfg.TableMapPath, "apps", len(resolver.AppIDs()))

	historyRepo, err := history.NewRepo(deps.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("init history repo: %w", err)
	}

	orch := session.NewOrchestrator(
		session.NewController(deps.Engine),
		session.NewCache(deps.Store),
		session.Config{
			TTL:                cfg.SessionTTL,
			LockTTL:            cfg.LockTTL,
			GuardInFlight:      cfg.GuardInFlight,
			FallbackStartFresh: cfg.FallbackStartFresh,
		},
		logger.With("component", "session"),
	)
	orch.SetHistory(historyRepo)

	handler := api.NewHandler(api.HandlerConfig{
		Resolver: resolver,
		Sessions: orch,
		History:  historyRepo,
		Location: cfg.BigQueryLocation,
		MaxRows:  cfg.MaxRows,
		Logger:   logger.With("component", "api"),
	})

	return &App{
		Handler:      handler,
		Orchestrator: orch,
		Resolver:     resolver,
		History:      historyRepo,
	}, nil
}
