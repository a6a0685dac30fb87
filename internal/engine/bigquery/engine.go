// Package bigquery implements the query engine port against Google BigQuery,
// the production backend. Jobs are real BigQuery query jobs; page tokens are
// BigQuery's own result-page tokens, so sessions survive across processes.
package bigquery

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"event-feed/internal/domain"
)

// Engine submits and resumes BigQuery query jobs.
type Engine struct {
	client   *bigquery.Client
	location string
	logger   *slog.Logger
}

var _ domain.QueryEngine = (*Engine)(nil)

// New creates an Engine on an existing BigQuery client. The client's
// lifecycle belongs to the process entry point.
func New(client *bigquery.Client, location string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, location: location, logger: logger}
}

// SubmitQuery creates a query job with named parameters and returns its id.
// The job runs asynchronously on the backend; results are read via FetchPage.
func (e *Engine) SubmitQuery(ctx context.Context, spec domain.QuerySpec) (string, error) {
	q := e.client.Query(spec.SQL)
	q.Location = e.jobLocation(spec)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "pkg_id", Value: spec.Params.AppPackage},
		{Name: "ref_id", Value: spec.Params.AttributionID},
		{Name: "cursor", Value: spec.Params.Cursor},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("create query job: %w", err)
	}
	e.logger.Debug("query job created", "job_id", job.ID())
	return job.ID(), nil
}

// FetchPage resumes the job by id and reads one page of its results.
func (e *Engine) FetchPage(ctx context.Context, jobID, pageToken string, maxRows int) (*domain.ResultPage, error) {
	job, err := e.client.JobFromIDLocation(ctx, jobID, e.jobLocation(domain.QuerySpec{}))
	if err != nil {
		return nil, fmt.Errorf("lookup job %s: %w", jobID, err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", jobID, err)
	}

	var raw [][]bigquery.Value
	pager := iterator.NewPager(it, maxRows, pageToken)
	nextToken, err := pager.NextPage(&raw)
	if err != nil {
		return nil, fmt.Errorf("fetch page of job %s: %w", jobID, err)
	}

	rows := make([]domain.Row, 0, len(raw))
	for _, values := range raw {
		row := make(domain.Row, len(values))
		for i, field := range it.Schema {
			if i < len(values) {
				row[field.Name] = values[i]
			}
		}
		rows = append(rows, row)
	}

	return &domain.ResultPage{Rows: rows, PageToken: nextToken}, nil
}

func (e *Engine) jobLocation(spec domain.QuerySpec) string {
	if spec.Location != "" {
		return spec.Location
	}
	return e.location
}
