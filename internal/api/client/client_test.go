package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.Stats(context.Background())
	require.ErrorIs(t, err, ErrServerDown)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		conflict   bool
	}{
		{
			name:       "problem json",
			status:     http.StatusConflict,
			body:       `{"title":"Conflict","status":409,"detail":"a run is already in progress"}`,
			wantDetail: "a run is already in progress",
			conflict:   true,
		},
		{
			name:       "error field",
			status:     http.StatusInternalServerError,
			body:       `{"error":"internal server error"}`,
			wantDetail: "internal server error",
		},
		{
			name:       "plain text",
			status:     http.StatusBadGateway,
			body:       "upstream down\n",
			wantDetail: "upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Run(context.Background(), false)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.conflict, IsConflict(err))
		})
	}
}

func TestClient_TestRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/test-run", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RunResponse{
			Status: "completed",
			Run:    &domain.RunStatistics{ID: "r1", Mode: domain.RunModeTest, Processed: 2},
		})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, WithTimeout(time.Minute)).TestRun(context.Background(), 2, true)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Run)
	assert.Equal(t, 2, resp.Run.Processed)
}

func TestClient_ListRuns(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/runs", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("mode"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"runs":[{"id":"a","mode":"full"}],"total":7}`))
	}))
	defer srv.Close()

	page, err := New(srv.URL).ListRuns(context.Background(), domain.RunModeFull, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Runs, 1)
	assert.Equal(t, "a", page.Runs[0].ID)
}

func TestClient_UpdateSettings(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var s pipeline.Settings
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		_ = json.NewEncoder(w).Encode(s)
	}))
	defer srv.Close()

	in := pipeline.DefaultSettings()
	in.MaxPrice = 45000

	out, err := New(srv.URL).UpdateSettings(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestClient_DedupRoundTrip(t *testing.T) {
	t.Parallel()

	const snapshot = `{"processedListings":{},"exportedAt":"2026-03-10T12:00:00Z","totalEntries":0}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dedup/export":
			_, _ = w.Write([]byte(snapshot))
		case "/api/v1/dedup/import":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, snapshot, string(body))
			_, _ = w.Write([]byte(`{"success":true,"importedCount":0}`))
		case "/api/v1/dedup/sweep":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "48h0m0s", body["max_age"])
			_, _ = w.Write([]byte(`{"removed":3,"remaining":9}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	raw, err := c.ExportDedup(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, snapshot, string(raw))

	res, err := c.ImportDedup(ctx, raw)
	require.NoError(t, err)
	assert.True(t, res.Success)

	swept, err := c.SweepDedup(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, swept.Removed)
}
