package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// DedupStats returns dedup occupancy.
func (c *Client) DedupStats(ctx context.Context) (*dedup.Stats, error) {
	var st dedup.Stats
	if err := c.get(ctx, "/api/v1/dedup/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SweepDedup removes records older than maxAge. Zero uses the server default.
func (c *Client) SweepDedup(ctx context.Context, maxAge time.Duration) (*dedup.SweepResult, error) {
	body := map[string]string{}
	if maxAge > 0 {
		body["max_age"] = maxAge.String()
	}
	var res dedup.SweepResult
	if err := c.post(ctx, "/api/v1/dedup/sweep", nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExportDedup returns the raw snapshot JSON.
func (c *Client) ExportDedup(ctx context.Context) ([]byte, error) {
	var raw []byte
	if err := c.get(ctx, "/api/v1/dedup/export", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ImportDedup uploads a raw snapshot.
func (c *Client) ImportDedup(ctx context.Context, snapshot []byte) (*dedup.ImportResult, error) {
	var res dedup.ImportResult
	if err := c.post(ctx, "/api/v1/dedup/import", nil, snapshot, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RecentListings returns the newest processed listings.
func (c *Client) RecentListings(ctx context.Context, limit int) ([]domain.ProcessedRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var recs []domain.ProcessedRecord
	if err := c.get(ctx, "/api/v1/listings/recent", q, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
