// Package api exposes the event feed over HTTP: the paginated fetch-latest
// endpoint, session history, and liveness.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"event-feed/internal/catalog"
	"event-feed/internal/domain"
	"event-feed/internal/middleware"
	"event-feed/internal/session"
	"event-feed/internal/transform"
)

//go:embed fetch_latest.sql
var fetchLatestSQL string

// cursorPattern accepts decimal digits only. Anything else, including signs
// and whitespace, is rejected before it reaches the backend.
var cursorPattern = regexp.MustCompile(`^[0-9]+$`)

// SessionFetcher serves one page of a resumable query session.
type SessionFetcher interface {
	FetchPage(ctx context.Context, spec domain.QuerySpec, clientToken string) (*session.Result, error)
}

// HandlerConfig holds the collaborators the HTTP handler needs.
type HandlerConfig struct {
	Resolver *catalog.Resolver
	Sessions SessionFetcher
	History  domain.HistoryRecorder
	Location string
	MaxRows  int
	Logger   *slog.Logger
}

// Handler serves the event feed endpoints.
type Handler struct {
	resolver *catalog.Resolver
	sessions SessionFetcher
	history  domain.HistoryRecorder
	location string
	maxRows  int
	logger   *slog.Logger
}

// NewHandler builds the handler from its configuration.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: cfg.Resolver,
		sessions: cfg.Sessions,
		history:  cfg.History,
		location: cfg.Location,
		maxRows:  cfg.MaxRows,
		logger:   logger,
	}
}

// Routes mounts the handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/data/fetch_latest", h.fetchLatest)
	r.Get("/data/history", h.listHistory)
	r.Get("/healthz", h.health)
}

// fetchLatest serves one page of an application's event feed. The first call
// starts a backend job; subsequent calls resume it via the returned cursor or
// the server-side session.
func (h *Handler) fetchLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	appID := q.Get("app_id")
	ref, err := h.resolver.Resolve(appID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	from := q.Get("from")
	if !cursorPattern.MatchString(from) {
		h.writeError(w, r, domain.ErrValidation("cannot parse cursor: %q. Check formatting and try again", from))
		return
	}
	cursor, err := strconv.ParseInt(from, 10, 64)
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("cursor out of range: %q", from))
		return
	}

	spec := domain.QuerySpec{
		SQL:      strings.ReplaceAll(fetchLatestSQL, "@table", ref.FQN()),
		Location: h.location,
		Params: domain.QueryParams{
			AppPackage:    appID,
			AttributionID: q.Get("attribution_id"),
			Cursor:        cursor,
		},
		MaxRows: h.maxRows,
	}

	res, err := h.sessions.FetchPage(r.Context(), spec, q.Get("token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var next interface{}
	if res.NextToken != "" {
		next = res.NextToken
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       transform.Records(res.Rows),
		"nextCursor": next,
	})
}

// listHistory returns recent session activity, newest first.
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.HistoryFilter{}
	if appID := q.Get("app_id"); appID != "" {
		filter.AppID = &appID
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.writeError(w, r, domain.ErrValidation("cannot parse limit: %q. Expected a positive integer", raw))
			return
		}
		filter.Limit = limit
	}

	events, err := h.history.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusConflict {
		w.Header().Set("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
	}
	writeJSON(w, status, map[string]interface{}{"msg": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
