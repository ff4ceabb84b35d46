package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/car-deal-tracker/internal/store"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// HistoryProvider defines the store methods required by the history handler.
type HistoryProvider interface {
	GetRun(ctx context.Context, id string) (*domain.RunStatistics, error)
	ListRuns(ctx context.Context, q *store.RunQuery) ([]domain.RunStatistics, int, error)
	Summary(ctx context.Context) (*domain.RunSummary, error)
	ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error)
}

// HistoryHandler serves run statistics and the activity log.
type HistoryHandler struct {
	store HistoryProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(s HistoryProvider) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// StatsOutput is the response for GET /api/v1/stats.
type StatsOutput struct {
	Body *domain.RunSummary
}

// ListRunsInput filters the run history.
type ListRunsInput struct {
	Mode   string `query:"mode"   doc:"Only runs of this mode (full or test)"`
	Limit  int    `query:"limit"  doc:"Page size" default:"50" minimum:"1" maximum:"500"`
	Offset int    `query:"offset" doc:"Rows to skip" minimum:"0"`
}

// ListRunsOutput is a page of run history.
type ListRunsOutput struct {
	Body struct {
		Runs  []domain.RunStatistics `json:"runs"`
		Total int                    `json:"total" doc:"Runs matching the filter"`
	}
}

// GetRunInput selects one run.
type GetRunInput struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunOutput carries one run.
type GetRunOutput struct {
	Body *domain.RunStatistics
}

// ListLogsInput limits the activity log.
type ListLogsInput struct {
	Limit int `query:"limit" doc:"Maximum entries, newest first" default:"50" minimum:"1" maximum:"1000"`
}

// ListLogsOutput carries activity log entries.
type ListLogsOutput struct {
	Body []domain.LogEntry
}

// GetStats returns the accumulated run summary.
func (h *HistoryHandler) GetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	sum, err := h.store.Summary(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading stats failed: " + err.Error())
	}
	return &StatsOutput{Body: sum}, nil
}

// ListRuns returns run history, newest first.
func (h *HistoryHandler) ListRuns(ctx context.Context, in *ListRunsInput) (*ListRunsOutput, error) {
	q := &store.RunQuery{Limit: in.Limit, Offset: in.Offset}
	switch domain.RunMode(in.Mode) {
	case "":
	case domain.RunModeFull, domain.RunModeTest:
		m := domain.RunMode(in.Mode)
		q.Mode = &m
	default:
		return nil, huma.Error422UnprocessableEntity("mode must be full or test")
	}

	runs, total, err := h.store.ListRuns(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing runs failed: " + err.Error())
	}
	if runs == nil {
		runs = []domain.RunStatistics{}
	}

	resp := &ListRunsOutput{}
	resp.Body.Runs = runs
	resp.Body.Total = total
	return resp, nil
}

// GetRun returns a single run.
func (h *HistoryHandler) GetRun(ctx context.Context, in *GetRunInput) (*GetRunOutput, error) {
	run, err := h.store.GetRun(ctx, in.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("run not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("loading run failed: " + err.Error())
	}
	return &GetRunOutput{Body: run}, nil
}

// ListLogs returns the activity log, newest first.
func (h *HistoryHandler) ListLogs(ctx context.Context, in *ListLogsInput) (*ListLogsOutput, error) {
	logs, err := h.store.ListLogs(ctx, in.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing logs failed: " + err.Error())
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	return &ListLogsOutput{Body: logs}, nil
}

// RegisterHistoryRoutes registers statistics and log endpoints with the Huma API.
func RegisterHistoryRoutes(api huma.API, h *HistoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get run statistics",
		Description: "Totals across every recorded run: cars found, alerts sent, average price and success rate.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetStats)

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{id}",
		Summary:     "Get a run",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetRun)

	huma.Register(api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/api/v1/logs",
		Summary:     "List activity log",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListLogs)
}
