// Package session implements the resumable query session core: the job
// controller, the session cache adapter, and the orchestrator that decides
// whether a request starts a new backend job or resumes an existing one.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"event-feed/internal/cache"
	"event-feed/internal/domain"
)

// keyPrefix namespaces all session continuation entries in the shared cache.
const keyPrefix = "evfeed"

// inflightSuffix marks the short-lived per-session lock key.
const inflightSuffix = ":inflight"

// Fingerprint derives the deterministic cache key for a query session from
// the query-defining parameters: app package, attribution filter, and the
// lower-bound cursor. The continuation token is deliberately NOT part of the
// key — the cache value carries the evolving {jobId, pageToken}, so one
// logical client session owns exactly one cache slot.
//
// The concatenated parameter values are hashed so that client-supplied
// attribution ids cannot produce cache-hostile key bytes.
func Fingerprint(params domain.QueryParams) (string, error) {
	raw, err := cache.ComputeKey(keyPrefix, params.AppPackage, params.AttributionID, params.Cursor)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(raw))
	return keyPrefix + ":" + hex.EncodeToString(sum[:16]), nil
}

// Cache translates session fingerprints into continuation state stored in a
// TTL key-value store. Get/set/delete failures surface as CacheError — a
// cache outage is never silently treated as "no continuation".
type Cache struct {
	store cache.Store
}

// NewCache wraps a TTL store.
func NewCache(store cache.Store) *Cache {
	return &Cache{store: store}
}

// Load returns the cached continuation for key, or nil on a miss.
func (c *Cache) Load(ctx context.Context, key string) (*domain.CachedContinuation, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, domain.ErrCache(err, "load continuation %s", key)
	}
	if !ok {
		return nil, nil
	}
	var cont domain.CachedContinuation
	if err := json.Unmarshal(raw, &cont); err != nil {
		return nil, domain.ErrCache(err, "decode continuation %s", key)
	}
	return &cont, nil
}

// Save persists the continuation under key with the given TTL. A failure is
// fatal for the request: returning a token whose backing entry was never
// written would hand the client a dead continuation.
func (c *Cache) Save(ctx context.Context, key string, cont domain.CachedContinuation, ttl time.Duration) error {
	raw, err := json.Marshal(cont)
	if err != nil {
		return domain.ErrCache(err, "encode continuation %s", key)
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		return domain.ErrCache(err, "save continuation %s", key)
	}
	return nil
}

// Evict removes the continuation for key. Used when a session is exhausted or
// produced an empty page, so stale entries do not linger until TTL expiry.
func (c *Cache) Evict(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return domain.ErrCache(err, "evict continuation %s", key)
	}
	return nil
}

// AcquireInFlight takes the short-lived per-session lock. It returns false
// when another request currently holds it. The lock's own TTL reclaims it if
// the holder crashes before releasing.
func (c *Cache) AcquireInFlight(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	held, err := c.store.Add(ctx, key+inflightSuffix, []byte("1"), ttl)
	if err != nil {
		return false, domain.ErrCache(err, "acquire in-flight marker %s", key)
	}
	return held, nil
}

// ReleaseInFlight drops the per-session lock. Best-effort: the marker TTL
// covers a failed delete, so the error is returned for logging only.
func (c *Cache) ReleaseInFlight(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key+inflightSuffix)
}
