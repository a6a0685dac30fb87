package duckdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"

	"event-feed/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE app_events (
		app_package_name VARCHAR,
		referral_source VARCHAR,
		event_timestamp BIGINT,
		event_name VARCHAR
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO app_events VALUES
		('com.example.app', 'fb_web_x', 100, 'open'),
		('com.example.app', 'direct',   200, 'click'),
		('com.example.app', 'fb_web_y', 300, 'close'),
		('com.other.app',   'direct',   400, 'open')`)
	require.NoError(t, err)
	return db
}

func testSpec(cursor int64) domain.QuerySpec {
	return domain.QuerySpec{
		SQL: `SELECT * FROM app_events
			WHERE app_package_name = @pkg_id
			  AND (@ref_id = '' OR starts_with(referral_source, @ref_id))
			  AND event_timestamp > @cursor
			ORDER BY event_timestamp`,
		Params: domain.QueryParams{AppPackage: "com.example.app", Cursor: cursor},
	}
}

func TestEngine_SubmitAndPaginate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	jobID, err := e.SubmitQuery(ctx, testSpec(0))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// Page one: two rows and a token.
	page, err := e.FetchPage(ctx, jobID, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	require.NotEmpty(t, page.PageToken)
	assert.Equal(t, int64(100), page.Rows[0]["event_timestamp"])
	assert.Equal(t, int64(200), page.Rows[1]["event_timestamp"])

	// Page two: the final row, no token.
	page, err = e.FetchPage(ctx, jobID, page.PageToken, 2)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Empty(t, page.PageToken)
	assert.Equal(t, int64(300), page.Rows[0]["event_timestamp"])
}

func TestEngine_CursorAndAttributionFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	spec := testSpec(100)
	spec.Params.AttributionID = "fb_web"

	jobID, err := e.SubmitQuery(ctx, spec)
	require.NoError(t, err)

	page, err := e.FetchPage(ctx, jobID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, int64(300), page.Rows[0]["event_timestamp"])
	assert.Empty(t, page.PageToken)
}

func TestEngine_EmptyResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	jobID, err := e.SubmitQuery(ctx, testSpec(9999))
	require.NoError(t, err)

	page, err := e.FetchPage(ctx, jobID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Empty(t, page.PageToken)
}

func TestEngine_UnknownJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	_, err := e.FetchPage(ctx, "local-nope", "", 10)
	assert.Error(t, err)
}

func TestEngine_ExpiredJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })

	jobID, err := e.SubmitQuery(ctx, testSpec(0))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = e.FetchPage(ctx, jobID, "", 10)
	assert.Error(t, err)
}

func TestEngine_MalformedPageToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := New(openTestDB(t), time.Minute, nil)

	jobID, err := e.SubmitQuery(ctx, testSpec(0))
	require.NoError(t, err)

	_, err = e.FetchPage(ctx, jobID, "!!!", 10)
	assert.Error(t, err)
}
