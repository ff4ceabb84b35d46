package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
)

// Pinger reports whether the run-history backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StateProvider exposes the orchestrator state.
type StateProvider interface {
	State() pipeline.State
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	store Pinger
	state StateProvider
}

// NewHealthHandler creates a new HealthHandler. state may be nil.
func NewHealthHandler(s Pinger, state StateProvider) *HealthHandler {
	return &HealthHandler{store: s, state: state}
}

// ReadyResponse is the body of the readiness probe.
type ReadyResponse struct {
	Status   string         `json:"status"`
	Pipeline pipeline.State `json:"pipeline,omitempty"`
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if the run store is reachable, 503 otherwise. The
// current pipeline state is included for operators.
func (h *HealthHandler) Readyz(c echo.Context) error {
	resp := ReadyResponse{Status: "ready"}
	if h.state != nil {
		resp.Pipeline = h.state.State()
	}

	if err := h.store.Ping(c.Request().Context()); err != nil {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
