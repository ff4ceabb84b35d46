package client

import (
	"context"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// GetSettings returns the runtime settings.
func (c *Client) GetSettings(ctx context.Context) (*pipeline.Settings, error) {
	var s pipeline.Settings
	if err := c.get(ctx, "/api/v1/config", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings replaces the runtime settings and returns what the server
// applied.
func (c *Client) UpdateSettings(ctx context.Context, s pipeline.Settings) (*pipeline.Settings, error) {
	var out pipeline.Settings
	if err := c.put(ctx, "/api/v1/config", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarketContext returns the cached market context.
func (c *Client) MarketContext(ctx context.Context) (*domain.MarketContext, error) {
	var mc domain.MarketContext
	if err := c.get(ctx, "/api/v1/market-context", nil, &mc); err != nil {
		return nil, err
	}
	return &mc, nil
}

// RefreshMarketContext asks the server to re-sample the reference profile.
func (c *Client) RefreshMarketContext(ctx context.Context) (*domain.MarketContext, error) {
	var mc domain.MarketContext
	if err := c.post(ctx, "/api/v1/market-context/refresh", nil, nil, &mc); err != nil {
		return nil, err
	}
	return &mc, nil
}
