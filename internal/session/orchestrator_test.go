package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-feed/internal/cache"
	"event-feed/internal/domain"
)

// flakyStore wraps a Store and injects failures per operation.
type flakyStore struct {
	cache.Store
	getErr error
	setErr error
	delErr error
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value, ttl)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, key)
}

// twoPageEngine serves a fixed two-page result set: page one has two rows and
// token "T2", page two has one row and no further token.
func twoPageEngine() *fakeEngine {
	return &fakeEngine{
		submitFn: func(_ context.Context, _ domain.QuerySpec) (string, error) {
			return "job-1", nil
		},
		fetchFn: func(_ context.Context, jobID, pageToken string, _ int) (*domain.ResultPage, error) {
			if jobID != "job-1" {
				return nil, errors.New("job not found")
			}
			switch pageToken {
			case "":
				return &domain.ResultPage{
					Rows:      []domain.Row{{"event_timestamp": int64(1)}, {"event_timestamp": int64(2)}},
					PageToken: "T2",
				}, nil
			case "T2":
				return &domain.ResultPage{
					Rows: []domain.Row{{"event_timestamp": int64(3)}},
				}, nil
			default:
				return nil, errors.New("bad page token")
			}
		},
	}
}

func newTestOrchestrator(store cache.Store, eng domain.QueryEngine, cfg Config) *Orchestrator {
	if cfg.TTL == 0 {
		cfg.TTL = time.Minute
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return NewOrchestrator(NewController(eng), NewCache(store), cfg, nil)
}

func TestOrchestrator_TwoPageWalkViaToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := cache.NewMemory()
	eng := twoPageEngine()
	o := newTestOrchestrator(store, eng, Config{})

	// First call starts the job and returns page one plus a token.
	res, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, domain.EncodeContinuation("job-1", "T2"), res.NextToken)
	assert.Equal(t, 1, eng.submits)

	// The continuation entry exists while the session lives.
	key, err := Fingerprint(testSpec().Params)
	require.NoError(t, err)
	cont, err := NewCache(store).Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, cont)
	assert.Equal(t, domain.CachedContinuation{JobID: "job-1", PageToken: "T2"}, *cont)

	// Second call resumes via the client token and exhausts the session.
	res, err = o.FetchPage(ctx, testSpec(), res.NextToken)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Empty(t, res.NextToken)
	assert.Equal(t, 1, eng.submits) // no second job

	// Exhaustion removed the entry.
	cont, err = NewCache(store).Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, cont)
}

func TestOrchestrator_ResumesFromCacheWithoutToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := cache.NewMemory()
	eng := twoPageEngine()
	o := newTestOrchestrator(store, eng, Config{})

	_, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)

	// Same query parameters, no token: the cached continuation resumes.
	res, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Empty(t, res.NextToken)
	assert.Equal(t, 1, eng.submits)
	assert.Equal(t, 2, eng.fetches)
}

func TestOrchestrator_EmptyResultCreatesNoEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := cache.NewMemory()
	eng := &fakeEngine{
		submitFn: func(_ context.Context, _ domain.QuerySpec) (string, error) { return "job-1", nil },
		fetchFn: func(_ context.Context, _, _ string, _ int) (*domain.ResultPage, error) {
			return &domain.ResultPage{}, nil
		},
	}
	o := newTestOrchestrator(store, eng, Config{})

	res, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.NextToken)
	assert.Equal(t, 0, store.Len())
}

func TestOrchestrator_MalformedTokenFailsWithoutBackendCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := twoPageEngine()
	o := newTestOrchestrator(cache.NewMemory(), eng, Config{})

	_, err := o.FetchPage(ctx, testSpec(), "%%%garbage%%%")
	require.Error(t, err)
	var malformed *domain.MalformedTokenError
	assert.True(t, errors.As(err, &malformed))
	assert.Equal(t, 0, eng.submits)
	assert.Equal(t, 0, eng.fetches)
}

func TestOrchestrator_ResumeFailureLeavesEntryUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := cache.NewMemory()
	eng := twoPageEngine()
	o := newTestOrchestrator(store, eng, Config{})

	_, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)

	// Backend forgets the job.
	eng.fetchFn = func(_ context.Context, _, _ string, _ int) (*domain.ResultPage, error) {
		return nil, errors.New("job expired")
	}

	_, err = o.FetchPage(ctx, testSpec(), "")
	require.Error(t, err)
	var resume *domain.JobResumeError
	assert.True(t, errors.As(err, &resume))

	// The stale entry is not silently evicted.
	key, err := Fingerprint(testSpec().Params)
	require.NoError(t, err)
	cont, err := NewCache(store).Load(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, cont)
}

func TestOrchestrator_CacheLoadFailureIsFatalByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := twoPageEngine()
	store := &flakyStore{Store: cache.NewMemory(), getErr: errors.New("connection refused")}
	o := newTestOrchestrator(store, eng, Config{})

	_, err := o.FetchPage(ctx, testSpec(), "")
	require.Error(t, err)
	var cacheErr *domain.CacheError
	assert.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, 0, eng.submits)
}

func TestOrchestrator_CacheLoadFailureFallbackStartsFresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := twoPageEngine()
	mem := cache.NewMemory()
	store := &flakyStore{Store: mem, getErr: errors.New("connection refused")}
	o := newTestOrchestrator(store, eng, Config{FallbackStartFresh: true})

	res, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 1, eng.submits)
}

func TestOrchestrator_SaveFailureIsFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := twoPageEngine()
	store := &flakyStore{Store: cache.NewMemory(), setErr: errors.New("connection reset")}
	o := newTestOrchestrator(store, eng, Config{})

	_, err := o.FetchPage(ctx, testSpec(), "")
	require.Error(t, err)
	var cacheErr *domain.CacheError
	assert.True(t, errors.As(err, &cacheErr))
}

func TestOrchestrator_InFlightGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := cache.NewMemory()
	eng := twoPageEngine()
	o := newTestOrchestrator(store, eng, Config{GuardInFlight: true})

	key, err := Fingerprint(testSpec().Params)
	require.NoError(t, err)

	// A concurrent holder blocks the session.
	held, err := NewCache(store).AcquireInFlight(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = o.FetchPage(ctx, testSpec(), "")
	require.Error(t, err)
	var busy *domain.SessionBusyError
	assert.True(t, errors.As(err, &busy))
	assert.Equal(t, 0, eng.submits)

	// Once released, the request goes through and the marker is dropped
	// again afterwards.
	require.NoError(t, NewCache(store).ReleaseInFlight(ctx, key))
	res, err := o.FetchPage(ctx, testSpec(), "")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	held, err = NewCache(store).AcquireInFlight(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, held, "in-flight marker should have been released")
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	p := domain.QueryParams{AppPackage: "com.example.app", AttributionID: "fb", Cursor: 100}

	k1, err := Fingerprint(p)
	require.NoError(t, err)
	k2, err := Fingerprint(p)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	// The cursor participates in the fingerprint; the continuation token
	// does not exist at this layer at all.
	p2 := p
	p2.Cursor = 200
	k3, err := Fingerprint(p2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	p3 := p
	p3.AttributionID = "google"
	k4, err := Fingerprint(p3)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}
