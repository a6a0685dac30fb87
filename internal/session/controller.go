package session

import (
	"context"

	"event-feed/internal/domain"
)

// Page is the outcome of driving a query session one step: the rows of
// exactly one result page plus the position needed to continue.
//
// Invariant: Exhausted == true implies PageToken == "".
type Page struct {
	Rows      []domain.Row
	JobID     string
	PageToken string
	Exhausted bool
}

// Controller drives one query session per call: submitting a new backend job
// or fetching the next page of a running one. It holds no state across
// requests — the session's lifecycle within a request runs
// NEW → JOB_SUBMITTED → PAGE_FETCHED → {MORE_PAGES | EXHAUSTED}, and failures
// propagate immediately as errors rather than being held in the controller.
type Controller struct {
	engine domain.QueryEngine
}

// NewController creates a Controller on top of a query engine.
func NewController(engine domain.QueryEngine) *Controller {
	return &Controller{engine: engine}
}

// Start submits the query as a new job and retrieves its first page. A
// backend rejection (auth, malformed query, quota) is fatal and not retried.
func (c *Controller) Start(ctx context.Context, spec domain.QuerySpec) (*Page, error) {
	jobID, err := c.engine.SubmitQuery(ctx, spec)
	if err != nil {
		return nil, domain.ErrJobSubmission(err, "submit query for %s", spec.Params.AppPackage)
	}
	rp, err := c.engine.FetchPage(ctx, jobID, "", spec.MaxRows)
	if err != nil {
		return nil, domain.ErrJobSubmission(err, "fetch first page of job %s", jobID)
	}
	return pageOf(jobID, rp), nil
}

// Resume fetches the next page of an already-running job. An empty jobID
// means the session was already known-exhausted: Resume short-circuits to an
// empty exhausted page without contacting the backend. A backend that no
// longer recognizes the job is surfaced as JobResumeError — never silently
// restarted, since a restart would skip or duplicate the cursor position.
func (c *Controller) Resume(ctx context.Context, jobID, pageToken string, maxRows int) (*Page, error) {
	if jobID == "" {
		return &Page{Exhausted: true}, nil
	}
	rp, err := c.engine.FetchPage(ctx, jobID, pageToken, maxRows)
	if err != nil {
		return nil, domain.ErrJobResume(err, "resume job %s", jobID)
	}
	return pageOf(jobID, rp), nil
}

func pageOf(jobID string, rp *domain.ResultPage) *Page {
	return &Page{
		Rows:      rp.Rows,
		JobID:     jobID,
		PageToken: rp.PageToken,
		Exhausted: rp.PageToken == "",
	}
}
