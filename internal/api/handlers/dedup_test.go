package handlers_test

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/internal/api/handlers"
	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

type storeSweeper struct{ s *dedup.Store }

func (w storeSweeper) SweepDedup(maxAge time.Duration) dedup.SweepResult {
	return w.s.SweepOlderThan(maxAge)
}

type dedupFixture struct {
	store *dedup.Store
	now   time.Time
	api   humatest.TestAPI
	path  string
}

func newDedupFixture(t *testing.T, capacity int) *dedupFixture {
	t.Helper()

	f := &dedupFixture{
		now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		path: filepath.Join(t.TempDir(), "dedup.json"),
	}
	f.store = dedup.New(capacity, dedup.WithNowFunc(func() time.Time { return f.now }))

	_, f.api = humatest.New(t)
	h := handlers.NewDedupHandler(f.store, storeSweeper{f.store}, 24*time.Hour,
		handlers.WithSnapshotPath(f.path))
	handlers.RegisterDedupRoutes(f.api, h)
	return f
}

func (f *dedupFixture) put(id string, age time.Duration) {
	now := f.now
	f.now = now.Add(-age)
	f.store.Put(id, domain.ProcessedRecord{Listing: domain.Listing{Identity: id, Title: "Toyota Yaris " + id}})
	f.now = now
}

func TestDedupStats(t *testing.T) {
	t.Parallel()

	f := newDedupFixture(t, 10)
	f.put("https://m.example/item/1", 0)

	resp := f.api.Get("/api/v1/dedup/stats")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":1`)
	assert.Contains(t, resp.Body.String(), `"capacity":10`)
}

func TestDedupSweep(t *testing.T) {
	t.Parallel()

	f := newDedupFixture(t, 10)
	f.put("old", 48*time.Hour)
	f.put("mid", 3*time.Hour)
	f.put("new", 0)

	// Default age from the handler.
	resp := f.api.Post("/api/v1/dedup/sweep")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"removed":1`)
	assert.Contains(t, resp.Body.String(), `"remaining":2`)
	assert.FileExists(t, f.path)

	resp = f.api.Post("/api/v1/dedup/sweep", map[string]any{"max_age": "1h"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"remaining":1`)

	resp = f.api.Post("/api/v1/dedup/sweep", map[string]any{"max_age": "soon"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDedupExportImport(t *testing.T) {
	t.Parallel()

	src := newDedupFixture(t, 10)
	src.put("a", 2*time.Hour)
	src.put("b", time.Hour)

	resp := src.api.Get("/api/v1/dedup/export")
	require.Equal(t, http.StatusOK, resp.Code)
	exported := resp.Body.String()
	assert.Contains(t, exported, `"processedListings"`)
	assert.Contains(t, exported, `"totalEntries":2`)

	dst := newDedupFixture(t, 10)
	resp = dst.api.Post("/api/v1/dedup/import", strings.NewReader(exported))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), `"importedCount":2`)
	assert.True(t, dst.store.Has("a"))
	assert.FileExists(t, dst.path)

	recent := dst.store.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].Identity)
}

func TestDedupImport_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{not json`},
		{name: "missing listings", body: `{"exportedAt":"2026-03-10T12:00:00Z"}`},
		{name: "missing stored_at", body: `{"processedListings":{"x":{"identity":"x"}}}`},
		{
			name: "over capacity",
			body: `{"processedListings":{` +
				`"x":{"stored_at":"2026-03-10T12:00:00Z"},` +
				`"y":{"stored_at":"2026-03-10T12:00:00Z"},` +
				`"z":{"stored_at":"2026-03-10T12:00:00Z"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newDedupFixture(t, 2)
			f.put("keep", 0)

			resp := f.api.Post("/api/v1/dedup/import", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.True(t, f.store.Has("keep"), "store untouched")
			assert.Equal(t, 1, f.store.Len())
			assert.NoFileExists(t, f.path)
		})
	}
}

func TestRecentListings(t *testing.T) {
	t.Parallel()

	f := newDedupFixture(t, 10)
	f.put("first", 0)
	f.put("second", 0)

	resp := f.api.Get("/api/v1/listings/recent?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "second")
	assert.NotContains(t, resp.Body.String(), `"identity":"first"`)
}
