package score

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func listing(title string, price float64) domain.Listing {
	return domain.Listing{Title: title, NumericPrice: &price}
}

func TestRuleEvaluator_Evaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mc := domain.MarketContext{
		AveragePrice: 45000,
		TopBrands:    []string{"toyota", "hyundai", "nissan", "kia"},
	}

	tests := []struct {
		name       string
		listing    domain.Listing
		wantDeal   bool
		wantConf   float64
		wantProfit float64
		wantRisk   domain.RiskLevel
	}{
		{
			name:       "affordable popular brand",
			listing:    listing("Toyota Corolla 2018 Automático", 38000),
			wantDeal:   true,
			wantConf:   0.85,
			wantProfit: 20,
			wantRisk:   domain.RiskLow,
		},
		{
			name:       "affordable unpopular brand",
			listing:    listing("Renault Logan 2017", 25000),
			wantDeal:   false,
			wantConf:   0.45,
			wantProfit: 20,
			wantRisk:   domain.RiskLow,
		},
		{
			name:       "expensive",
			listing:    listing("BMW X3 2019 Premium", 85000),
			wantDeal:   false,
			wantConf:   0.45,
			wantProfit: 5,
			wantRisk:   domain.RiskMedium,
		},
		{
			name:       "price equal to average is not affordable",
			listing:    listing("Hyundai Tucson 2019", 45000),
			wantDeal:   false,
			wantConf:   0.45,
			wantProfit: 5,
			wantRisk:   domain.RiskMedium,
		},
	}

	r := NewRuleEvaluator(WithNowFunc(func() time.Time { return now }))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := r.Evaluate(context.Background(), tt.listing, mc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeal, a.IsGoodDeal)
			assert.InDelta(t, tt.wantConf, a.Confidence, 0.0001)
			assert.InDelta(t, tt.wantProfit, a.ProfitPotentialPct, 0.0001)
			assert.Equal(t, tt.wantRisk, a.RiskLevel)
			assert.InDelta(t, 45000.0, a.EstimatedMarketPrice, 0.001)
			assert.Equal(t, now, a.EvaluatedAt)
			assert.NotEmpty(t, a.Explanation)
		})
	}
}

func TestPopularBrand(t *testing.T) {
	t.Parallel()

	assert.True(t, PopularBrand("TOYOTA Hilux", []string{"toyota"}))
	assert.True(t, PopularBrand("kia rio", []string{"Kia"}))
	assert.False(t, PopularBrand("Renault Duster", []string{"toyota", ""}))
	assert.False(t, PopularBrand("Toyota", nil))
}

func TestRuleEvaluator_CheckCredentials(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewRuleEvaluator().CheckCredentials())
}
