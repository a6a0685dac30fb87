package session

import (
	"context"
	"log/slog"
	"time"

	"event-feed/internal/domain"
)

// Config tunes session continuation behavior.
type Config struct {
	// TTL bounds how long a client may wait between pages before the
	// session expires server-side.
	TTL time.Duration
	// LockTTL bounds how long an in-flight marker survives a crashed holder.
	LockTTL time.Duration
	// GuardInFlight enables the per-session in-flight marker. A concurrent
	// request for the same session is rejected with SessionBusyError instead
	// of double-submitting a backend job.
	GuardInFlight bool
	// FallbackStartFresh downgrades a continuation-load failure to a cache
	// miss (starting a fresh job) instead of failing the request. Off by
	// default: restarting an expensive job on a cache hiccup is surprising.
	FallbackStartFresh bool
}

// Result is the outward outcome of one session step: the page's rows and the
// continuation token the client passes back, empty when the session is done.
type Result struct {
	Rows      []domain.Row
	NextToken string
}

// Orchestrator is the per-request coordination point. It computes the session
// fingerprint, decides between starting and resuming, drives the controller,
// and keeps the cache entry consistent with the session's liveness: an entry
// exists if and only if the session is not yet exhausted.
type Orchestrator struct {
	controller *Controller
	cache      *Cache
	history    domain.HistoryRecorder // optional, best-effort
	cfg        Config
	logger     *slog.Logger
}

// NewOrchestrator wires the orchestrator. The cache client handle comes in
// through the Cache; its lifecycle belongs to the process entry point.
func NewOrchestrator(controller *Controller, cache *Cache, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{controller: controller, cache: cache, cfg: cfg, logger: logger}
}

// SetHistory enables best-effort session activity recording.
func (o *Orchestrator) SetHistory(h domain.HistoryRecorder) { o.history = h }

// FetchPage serves exactly one page for the session described by spec.
//
// A client-supplied continuation token wins over the cache; a token that does
// not decode fails the request rather than silently restarting a job the
// client did not ask to restart. Per successful request the continuation
// entry sees exactly one write or one delete, and the backend sees exactly
// one job operation.
func (o *Orchestrator) FetchPage(ctx context.Context, spec domain.QuerySpec, clientToken string) (*Result, error) {
	key, err := Fingerprint(spec.Params)
	if err != nil {
		return nil, err
	}

	var cont *domain.CachedContinuation
	if clientToken != "" {
		jobID, pageToken, decodeErr := domain.DecodeContinuation(clientToken)
		if decodeErr != nil {
			return nil, decodeErr
		}
		cont = &domain.CachedContinuation{JobID: jobID, PageToken: pageToken}
	} else {
		cont, err = o.cache.Load(ctx, key)
		if err != nil {
			if !o.cfg.FallbackStartFresh {
				return nil, err
			}
			o.logger.Warn("continuation load failed, starting fresh", "key", key, "error", err)
			cont = nil
		}
	}

	if o.cfg.GuardInFlight {
		held, lockErr := o.cache.AcquireInFlight(ctx, key, o.cfg.LockTTL)
		if lockErr != nil {
			return nil, lockErr
		}
		if !held {
			return nil, domain.ErrSessionBusy("another request is serving session %s", key)
		}
		defer func() {
			if relErr := o.cache.ReleaseInFlight(ctx, key); relErr != nil {
				o.logger.Warn("release in-flight marker failed", "key", key, "error", relErr)
			}
		}()
	}

	start := time.Now()
	action := domain.SessionActionStart
	var page *Page
	if cont != nil {
		action = domain.SessionActionResume
		page, err = o.controller.Resume(ctx, cont.JobID, cont.PageToken, spec.MaxRows)
	} else {
		page, err = o.controller.Start(ctx, spec)
	}
	if err != nil {
		// A failed resume leaves any cache entry untouched: the state it
		// describes was never consumed.
		o.record(ctx, spec, key, "", action, start, 0, false, err)
		return nil, err
	}

	res := &Result{Rows: page.Rows}
	if page.Exhausted || len(page.Rows) == 0 {
		if err := o.cache.Evict(ctx, key); err != nil {
			return nil, err
		}
		o.logger.Debug("session exhausted", "key", key, "job_id", page.JobID)
	} else {
		next := domain.CachedContinuation{JobID: page.JobID, PageToken: page.PageToken}
		if err := o.cache.Save(ctx, key, next, o.cfg.TTL); err != nil {
			return nil, err
		}
		res.NextToken = domain.EncodeContinuation(page.JobID, page.PageToken)
		o.logger.Info("saving job continuation", "key", key, "job_id", page.JobID)
	}

	o.record(ctx, spec, key, page.JobID, action, start, len(page.Rows), page.Exhausted, nil)
	return res, nil
}

func (o *Orchestrator) record(ctx context.Context, spec domain.QuerySpec, key, jobID, action string, start time.Time, rows int, exhausted bool, cause error) {
	if o.history == nil {
		return
	}
	ev := &domain.SessionEvent{
		AppID:       spec.Params.AppPackage,
		Fingerprint: key,
		JobID:       jobID,
		Action:      action,
		Status:      domain.SessionStatusOK,
		RowCount:    rows,
		Exhausted:   exhausted,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if cause != nil {
		msg := cause.Error()
		ev.Status = domain.SessionStatusError
		ev.ErrorMessage = &msg
	}
	if err := o.history.Record(ctx, ev); err != nil {
		o.logger.Warn("record session history failed", "key", key, "error", err)
	}
}
