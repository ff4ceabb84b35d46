package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// Runner is the slice of the orchestrator the admin API drives.
type Runner interface {
	FullRun(ctx context.Context) (domain.RunStatistics, error)
	TestRun(ctx context.Context, limit int) (domain.RunStatistics, error)
	Status() pipeline.Status
	Settings() pipeline.Settings
	UpdateSettings(s pipeline.Settings) error
	RefreshContext(ctx context.Context) (domain.MarketContext, error)
	MarketContext() (domain.MarketContext, bool)
}

// PipelineHandler triggers runs and exposes runtime settings.
type PipelineHandler struct {
	runner Runner
	log    *slog.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(r Runner, log *slog.Logger) *PipelineHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PipelineHandler{runner: r, log: log}
}

// StatusOutput is the response for GET /api/v1/status.
type StatusOutput struct {
	Body pipeline.Status
}

// RunInput controls whether a triggered run is awaited.
type RunInput struct {
	Wait bool `query:"wait" doc:"Block until the run finishes and return its statistics"`
}

// TestRunInput is RunInput plus the candidate cap.
type TestRunInput struct {
	Wait  bool `query:"wait"  doc:"Block until the run finishes and return its statistics"`
	Limit int  `query:"limit" doc:"Maximum candidates to evaluate (default from config)" minimum:"0" maximum:"100"`
}

// RunOutput is the response for run triggers. Status is 202 for background
// runs and 200 for awaited ones.
type RunOutput struct {
	Status int
	Body   struct {
		Status string                `json:"status" example:"started" doc:"started or completed"`
		Run    *domain.RunStatistics `json:"run,omitempty"`
	}
}

// SettingsOutput carries the runtime settings.
type SettingsOutput struct {
	Body pipeline.Settings
}

// UpdateSettingsInput replaces the runtime settings.
type UpdateSettingsInput struct {
	Body pipeline.Settings
}

// MarketContextOutput carries a market context.
type MarketContextOutput struct {
	Body domain.MarketContext
}

// GetStatus returns the orchestrator state.
func (h *PipelineHandler) GetStatus(_ context.Context, _ *struct{}) (*StatusOutput, error) {
	return &StatusOutput{Body: h.runner.Status()}, nil
}

// Run triggers a full run.
func (h *PipelineHandler) Run(ctx context.Context, in *RunInput) (*RunOutput, error) {
	return h.trigger(ctx, in.Wait, "full", func(ctx context.Context) (domain.RunStatistics, error) {
		return h.runner.FullRun(ctx)
	})
}

// TestRun triggers a capped run.
func (h *PipelineHandler) TestRun(ctx context.Context, in *TestRunInput) (*RunOutput, error) {
	return h.trigger(ctx, in.Wait, "test", func(ctx context.Context) (domain.RunStatistics, error) {
		return h.runner.TestRun(ctx, in.Limit)
	})
}

func (h *PipelineHandler) trigger(
	ctx context.Context,
	wait bool,
	mode string,
	run func(context.Context) (domain.RunStatistics, error),
) (*RunOutput, error) {
	resp := &RunOutput{}

	if !wait {
		if h.runner.Status().Running {
			return nil, huma.Error409Conflict(pipeline.ErrRunInProgress.Error())
		}
		// The request context ends with the response.
		bg := context.WithoutCancel(ctx)
		go func() {
			if _, err := run(bg); err != nil {
				h.log.Error("background run failed", "mode", mode, "error", err)
			}
		}()
		resp.Status = http.StatusAccepted
		resp.Body.Status = "started"
		return resp, nil
	}

	stats, err := run(ctx)
	if err != nil {
		return nil, runError(err)
	}
	resp.Status = http.StatusOK
	resp.Body.Status = "completed"
	resp.Body.Run = &stats
	return resp, nil
}

// GetSettings returns the runtime settings.
func (h *PipelineHandler) GetSettings(_ context.Context, _ *struct{}) (*SettingsOutput, error) {
	return &SettingsOutput{Body: h.runner.Settings()}, nil
}

// UpdateSettings validates and applies new runtime settings.
func (h *PipelineHandler) UpdateSettings(_ context.Context, in *UpdateSettingsInput) (*SettingsOutput, error) {
	if err := h.runner.UpdateSettings(in.Body); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return &SettingsOutput{Body: h.runner.Settings()}, nil
}

// GetMarketContext returns the last computed market context.
func (h *PipelineHandler) GetMarketContext(_ context.Context, _ *struct{}) (*MarketContextOutput, error) {
	mc, ok := h.runner.MarketContext()
	if !ok {
		return nil, huma.Error404NotFound("market context not computed yet")
	}
	return &MarketContextOutput{Body: mc}, nil
}

// RefreshMarketContext re-samples the reference profile.
func (h *PipelineHandler) RefreshMarketContext(ctx context.Context, _ *struct{}) (*MarketContextOutput, error) {
	mc, err := h.runner.RefreshContext(ctx)
	if err != nil {
		return nil, runError(err)
	}
	return &MarketContextOutput{Body: mc}, nil
}

func runError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, pipeline.ErrSetup):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, pipeline.ErrExtraction):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError("run failed: " + err.Error())
	}
}

// RegisterPipelineRoutes registers run and settings endpoints with the Huma API.
func RegisterPipelineRoutes(api huma.API, h *PipelineHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Get pipeline status",
		Description: "Returns the orchestrator state, the last run and the cached market context.",
		Tags:        []string{"pipeline"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID:   "trigger-run",
		Method:        http.MethodPost,
		Path:          "/api/v1/run",
		Summary:       "Trigger a full run",
		Description:   "Starts a full run in the background, or waits for it with ?wait=true.",
		Tags:          []string{"pipeline"},
		DefaultStatus: http.StatusAccepted,
		Errors: []int{
			http.StatusConflict, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusInternalServerError,
		},
	}, h.Run)

	huma.Register(api, huma.Operation{
		OperationID:   "trigger-test-run",
		Method:        http.MethodPost,
		Path:          "/api/v1/test-run",
		Summary:       "Trigger a test run",
		Description:   "Runs the pipeline on at most ?limit candidates.",
		Tags:          []string{"pipeline"},
		DefaultStatus: http.StatusAccepted,
		Errors: []int{
			http.StatusConflict, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusInternalServerError,
		},
	}, h.TestRun)

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/config",
		Summary:     "Get runtime settings",
		Tags:        []string{"config"},
	}, h.GetSettings)

	huma.Register(api, huma.Operation{
		OperationID: "update-config",
		Method:      http.MethodPut,
		Path:        "/api/v1/config",
		Summary:     "Replace runtime settings",
		Description: "Applies to the next run. Invalid settings are rejected as a whole.",
		Tags:        []string{"config"},
		Errors:      []int{http.StatusUnprocessableEntity},
	}, h.UpdateSettings)

	huma.Register(api, huma.Operation{
		OperationID: "get-market-context",
		Method:      http.MethodGet,
		Path:        "/api/v1/market-context",
		Summary:     "Get market context",
		Tags:        []string{"market"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetMarketContext)

	huma.Register(api, huma.Operation{
		OperationID: "refresh-market-context",
		Method:      http.MethodPost,
		Path:        "/api/v1/market-context/refresh",
		Summary:     "Refresh market context",
		Description: "Re-samples the reference profile. Falls back to the default context when sampling fails.",
		Tags:        []string{"market"},
		Errors:      []int{http.StatusConflict, http.StatusInternalServerError},
	}, h.RefreshMarketContext)
}
