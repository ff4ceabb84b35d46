package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// RunResponse is the answer to a run trigger. Run is set for awaited runs.
type RunResponse struct {
	Status string                `json:"status"`
	Run    *domain.RunStatistics `json:"run,omitempty"`
}

// RunsPage is one page of run history.
type RunsPage struct {
	Runs  []domain.RunStatistics `json:"runs"`
	Total int                    `json:"total"`
}

// Status returns the orchestrator state.
func (c *Client) Status(ctx context.Context) (*pipeline.Status, error) {
	var st pipeline.Status
	if err := c.get(ctx, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Run triggers a full run, optionally waiting for it.
func (c *Client) Run(ctx context.Context, wait bool) (*RunResponse, error) {
	var resp RunResponse
	q := url.Values{"wait": {strconv.FormatBool(wait)}}
	if err := c.post(ctx, "/api/v1/run", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestRun triggers a run capped at limit candidates. Zero uses the server
// default.
func (c *Client) TestRun(ctx context.Context, limit int, wait bool) (*RunResponse, error) {
	var resp RunResponse
	q := url.Values{"wait": {strconv.FormatBool(wait)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if err := c.post(ctx, "/api/v1/test-run", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns the accumulated run summary.
func (c *Client) Stats(ctx context.Context) (*domain.RunSummary, error) {
	var sum domain.RunSummary
	if err := c.get(ctx, "/api/v1/stats", nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// ListRuns returns run history. An empty mode lists every run.
func (c *Client) ListRuns(ctx context.Context, mode domain.RunMode, limit, offset int) (*RunsPage, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", string(mode))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var page RunsPage
	if err := c.get(ctx, "/api/v1/runs", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRun returns one run.
func (c *Client) GetRun(ctx context.Context, id string) (*domain.RunStatistics, error) {
	var run domain.RunStatistics
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Logs returns up to limit activity log entries, newest first.
func (c *Client) Logs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var logs []domain.LogEntry
	if err := c.get(ctx, "/api/v1/logs", q, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
