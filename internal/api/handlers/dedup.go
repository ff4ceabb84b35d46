package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// DedupStore is the processed-listing memory as seen by the API.
type DedupStore interface {
	Stats() dedup.Stats
	Recent(n int) []domain.ProcessedRecord
	Export() dedup.Snapshot
	Import(snap dedup.Snapshot) dedup.ImportResult
	SaveFile(path string) error
}

// Sweeper removes aged dedup records and refreshes the related metrics.
type Sweeper interface {
	SweepDedup(maxAge time.Duration) dedup.SweepResult
}

// DedupHandler manages the processed-listing memory.
type DedupHandler struct {
	store        DedupStore
	sweeper      Sweeper
	maxAge       time.Duration
	snapshotPath string
	log          *slog.Logger
}

// DedupOption configures a DedupHandler.
type DedupOption func(*DedupHandler)

// WithSnapshotPath persists the store to path after every mutation.
func WithSnapshotPath(path string) DedupOption {
	return func(h *DedupHandler) {
		h.snapshotPath = path
	}
}

// WithDedupLogger sets the handler logger.
func WithDedupLogger(l *slog.Logger) DedupOption {
	return func(h *DedupHandler) {
		h.log = l
	}
}

// NewDedupHandler creates a new DedupHandler. maxAge is the sweep age used
// when a request does not name one.
func NewDedupHandler(s DedupStore, sw Sweeper, maxAge time.Duration, opts ...DedupOption) *DedupHandler {
	h := &DedupHandler{store: s, sweeper: sw, maxAge: maxAge, log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DedupStatsOutput is the response for GET /api/v1/dedup/stats.
type DedupStatsOutput struct {
	Body dedup.Stats
}

// SweepInput optionally overrides the sweep age.
type SweepInput struct {
	Body *struct {
		MaxAge string `json:"max_age,omitempty" example:"168h" doc:"Remove records older than this Go duration"`
	} `required:"false"`
}

// SweepOutput reports a sweep.
type SweepOutput struct {
	Body dedup.SweepResult
}

// ExportOutput carries the full snapshot.
type ExportOutput struct {
	Body dedup.Snapshot
}

// ImportInput carries a snapshot to load, decoded by the handler so that
// every malformed snapshot answers 400.
type ImportInput struct {
	RawBody []byte `contentType:"application/json"`
}

// ImportOutput reports an import.
type ImportOutput struct {
	Body dedup.ImportResult
}

// RecentInput limits the recent listings.
type RecentInput struct {
	Limit int `query:"limit" doc:"Maximum records, newest first" default:"20" minimum:"1" maximum:"1000"`
}

// RecentOutput carries recently processed listings.
type RecentOutput struct {
	Body []domain.ProcessedRecord
}

// GetStats returns dedup occupancy.
func (h *DedupHandler) GetStats(_ context.Context, _ *struct{}) (*DedupStatsOutput, error) {
	return &DedupStatsOutput{Body: h.store.Stats()}, nil
}

// Sweep removes records older than the requested or configured age.
func (h *DedupHandler) Sweep(_ context.Context, in *SweepInput) (*SweepOutput, error) {
	maxAge := h.maxAge
	if in.Body != nil && in.Body.MaxAge != "" {
		d, err := time.ParseDuration(in.Body.MaxAge)
		if err != nil || d <= 0 {
			return nil, huma.Error400BadRequest("max_age must be a positive duration such as 168h")
		}
		maxAge = d
	}
	if maxAge <= 0 {
		return nil, huma.Error400BadRequest("no max_age configured")
	}

	res := h.sweeper.SweepDedup(maxAge)
	if res.Removed > 0 {
		h.persist()
	}
	return &SweepOutput{Body: res}, nil
}

// Export returns every record.
func (h *DedupHandler) Export(_ context.Context, _ *struct{}) (*ExportOutput, error) {
	return &ExportOutput{Body: h.store.Export()}, nil
}

// Import replaces the store contents. Invalid snapshots leave the store
// untouched and answer 400.
func (h *DedupHandler) Import(_ context.Context, in *ImportInput) (*ImportOutput, error) {
	var snap dedup.Snapshot
	if err := json.Unmarshal(in.RawBody, &snap); err != nil {
		return nil, huma.Error400BadRequest("import failed: malformed snapshot: " + err.Error())
	}

	res := h.store.Import(snap)
	if !res.Success {
		return nil, huma.Error400BadRequest("import failed: " + res.Error)
	}
	h.persist()
	return &ImportOutput{Body: res}, nil
}

// Recent returns the newest processed listings.
func (h *DedupHandler) Recent(_ context.Context, in *RecentInput) (*RecentOutput, error) {
	recs := h.store.Recent(in.Limit)
	if recs == nil {
		recs = []domain.ProcessedRecord{}
	}
	return &RecentOutput{Body: recs}, nil
}

func (h *DedupHandler) persist() {
	if h.snapshotPath == "" {
		return
	}
	if err := h.store.SaveFile(h.snapshotPath); err != nil {
		h.log.Error("saving dedup snapshot", "path", h.snapshotPath, "error", err)
	}
}

// RegisterDedupRoutes registers dedup and listing endpoints with the Huma API.
func RegisterDedupRoutes(api huma.API, h *DedupHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dedup-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/dedup/stats",
		Summary:     "Get dedup occupancy",
		Tags:        []string{"dedup"},
	}, h.GetStats)

	huma.Register(api, huma.Operation{
		OperationID: "sweep-dedup",
		Method:      http.MethodPost,
		Path:        "/api/v1/dedup/sweep",
		Summary:     "Sweep aged records",
		Description: "Removes processed listings older than max_age (default from config).",
		Tags:        []string{"dedup"},
		Errors:      []int{http.StatusBadRequest},
	}, h.Sweep)

	huma.Register(api, huma.Operation{
		OperationID: "export-dedup",
		Method:      http.MethodGet,
		Path:        "/api/v1/dedup/export",
		Summary:     "Export processed listings",
		Tags:        []string{"dedup"},
	}, h.Export)

	huma.Register(api, huma.Operation{
		OperationID: "import-dedup",
		Method:      http.MethodPost,
		Path:        "/api/v1/dedup/import",
		Summary:     "Import processed listings",
		Description: "Replaces the store with the snapshot. Nothing changes when the snapshot is invalid or too large.",
		Tags:        []string{"dedup"},
		Errors:      []int{http.StatusBadRequest},
	}, h.Import)

	huma.Register(api, huma.Operation{
		OperationID: "list-recent-listings",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings/recent",
		Summary:     "List recently processed listings",
		Tags:        []string{"listings"},
	}, h.Recent)
}
