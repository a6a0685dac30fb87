package history

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"event-feed/internal/domain"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepo(db)
	require.NoError(t, err)
	return repo
}

func TestRepo_RecordAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := testRepo(t)

	ev := &domain.SessionEvent{
		AppID:       "com.example.app",
		Fingerprint: "evfeed:abc",
		JobID:       "job-1",
		Action:      domain.SessionActionStart,
		Status:      domain.SessionStatusOK,
		RowCount:    2,
		DurationMs:  12,
	}
	require.NoError(t, repo.Record(ctx, ev))
	assert.NotZero(t, ev.ID)

	msg := "job expired"
	require.NoError(t, repo.Record(ctx, &domain.SessionEvent{
		AppID:        "com.example.app",
		Fingerprint:  "evfeed:abc",
		Action:       domain.SessionActionResume,
		Status:       domain.SessionStatusError,
		ErrorMessage: &msg,
	}))

	events, err := repo.List(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, domain.SessionActionResume, events[0].Action)
	assert.Equal(t, domain.SessionStatusError, events[0].Status)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Equal(t, "job expired", *events[0].ErrorMessage)
	assert.Equal(t, "job-1", events[1].JobID)
	assert.Equal(t, 2, events[1].RowCount)
	assert.False(t, events[1].CreatedAt.IsZero())
}

func TestRepo_ListFiltersByAppID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := testRepo(t)

	for _, appID := range []string{"com.example.app", "com.other.app", "com.example.app"} {
		require.NoError(t, repo.Record(ctx, &domain.SessionEvent{
			AppID:       appID,
			Fingerprint: "f",
			Action:      domain.SessionActionStart,
			Status:      domain.SessionStatusOK,
		}))
	}

	appID := "com.example.app"
	events, err := repo.List(ctx, domain.HistoryFilter{AppID: &appID})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = repo.List(ctx, domain.HistoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
