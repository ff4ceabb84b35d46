package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/internal/api/handlers"
	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// fakeRunner is a test double for Runner.
type fakeRunner struct {
	mu        sync.Mutex
	status    pipeline.Status
	settings  pipeline.Settings
	stats     domain.RunStatistics
	runErr    error
	mc        *domain.MarketContext
	lastLimit int
	done      chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		settings: pipeline.DefaultSettings(),
		stats:    domain.RunStatistics{ID: "run-1", Mode: domain.RunModeFull, TotalFound: 3, SentCount: 2},
		done:     make(chan struct{}, 1),
	}
}

func (f *fakeRunner) FullRun(context.Context) (domain.RunStatistics, error) {
	defer func() { f.done <- struct{}{} }()
	return f.stats, f.runErr
}

func (f *fakeRunner) TestRun(_ context.Context, limit int) (domain.RunStatistics, error) {
	defer func() { f.done <- struct{}{} }()
	f.mu.Lock()
	f.lastLimit = limit
	f.mu.Unlock()
	stats := f.stats
	stats.Mode = domain.RunModeTest
	return stats, f.runErr
}

func (f *fakeRunner) Status() pipeline.Status { return f.status }

func (f *fakeRunner) Settings() pipeline.Settings { return f.settings }

func (f *fakeRunner) UpdateSettings(s pipeline.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	f.settings = s
	return nil
}

func (f *fakeRunner) RefreshContext(context.Context) (domain.MarketContext, error) {
	if f.runErr != nil {
		return domain.MarketContext{}, f.runErr
	}
	mc := domain.MarketContext{AveragePrice: 42000, Segment: domain.SegmentMedium}
	f.mc = &mc
	return mc, nil
}

func (f *fakeRunner) MarketContext() (domain.MarketContext, bool) {
	if f.mc == nil {
		return domain.MarketContext{}, false
	}
	return *f.mc, true
}

func newPipelineAPI(t *testing.T, r *fakeRunner) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterPipelineRoutes(api, handlers.NewPipelineHandler(r, nil))
	return api
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.status = pipeline.Status{State: pipeline.StateEvaluating, Running: true}

	resp := newPipelineAPI(t, r).Get("/api/v1/status")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"evaluating"`)
	assert.Contains(t, resp.Body.String(), `"running":true`)
}

func TestRun_Background(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	resp := newPipelineAPI(t, r).Post("/api/v1/run")
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"started"`)

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("background run never started")
	}
}

func TestRun_BackgroundWhileBusy(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.status.Running = true

	resp := newPipelineAPI(t, r).Post("/api/v1/run")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRun_Wait(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	resp := newPipelineAPI(t, r).Post("/api/v1/run?wait=true")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)
	assert.Contains(t, resp.Body.String(), `"sent_count":2`)
}

func TestRun_WaitErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "busy", err: pipeline.ErrRunInProgress, wantStatus: http.StatusConflict},
		{name: "setup", err: fmt.Errorf("%w: %w", pipeline.ErrSetup, errors.New("no key")), wantStatus: http.StatusServiceUnavailable},
		{name: "extraction", err: fmt.Errorf("%w: timeout", pipeline.ErrExtraction), wantStatus: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newFakeRunner()
			r.runErr = tt.err
			resp := newPipelineAPI(t, r).Post("/api/v1/run?wait=true")
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestTestRun_PassesLimit(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	resp := newPipelineAPI(t, r).Post("/api/v1/test-run?wait=true&limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"mode":"test"`)
	assert.Equal(t, 2, r.lastLimit)
}

func TestSettings_GetAndUpdate(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	api := newPipelineAPI(t, r)

	resp := api.Get("/api/v1/config")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"min_year":2010`)

	updated := pipeline.DefaultSettings()
	updated.MaxPrice = 55000
	resp = api.Put("/api/v1/config", updated)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"max_price":55000`)
	assert.InDelta(t, 55000, r.settings.MaxPrice, 0)

	bad := pipeline.DefaultSettings()
	bad.MaxItemsPerRun = 0
	resp = api.Put("/api/v1/config", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "max_items_per_run")
}

func TestMarketContext(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	api := newPipelineAPI(t, r)

	resp := api.Get("/api/v1/market-context")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/api/v1/market-context/refresh")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"average_price":42000`)

	resp = api.Get("/api/v1/market-context")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"segment":"medium"`)
}

func TestRefreshMarketContext_Busy(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.runErr = pipeline.ErrRunInProgress

	resp := newPipelineAPI(t, r).Post("/api/v1/market-context/refresh")
	assert.Equal(t, http.StatusConflict, resp.Code)
}
