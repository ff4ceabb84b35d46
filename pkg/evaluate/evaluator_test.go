package evaluate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/pkg/evaluate"
	"github.com/donaldgifford/car-deal-tracker/pkg/llm"
	llmMocks "github.com/donaldgifford/car-deal-tracker/pkg/llm/mocks"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testListing() domain.Listing {
	price := 32000.0
	year := 2018
	return domain.Listing{
		Identity:     "https://m.example/marketplace/item/1/",
		Title:        "Toyota Yaris 2018 automático",
		PriceText:    "S/ 32,000",
		NumericPrice: &price,
		Year:         &year,
		Description:  "Único dueño, mantenimiento en concesionario",
	}
}

func testContext() domain.MarketContext {
	return domain.MarketContext{
		AveragePrice: 45000,
		PriceRange:   domain.PriceRange{Min: 20000, Max: 80000},
		AverageYear:  2016,
		TopBrands:    []string{"toyota", "hyundai"},
		Segment:      domain.SegmentMedium,
	}
}

func TestLLMEvaluator_Evaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		backendErr   error
		wantDegraded bool
		want         func(t *testing.T, a domain.DealAssessment)
	}{
		{
			name: "good deal",
			content: `{"isGoodDeal": true, "confidence": 0.85, "estimatedMarketPrice": 42000,
				"profitPotential": 25, "riskLevel": "bajo", "explanation": "below market",
				"marketComparison": "20% under average", "recommendation": "buy"}`,
			want: func(t *testing.T, a domain.DealAssessment) {
				t.Helper()
				assert.True(t, a.IsGoodDeal)
				assert.InDelta(t, 0.85, a.Confidence, 0.0001)
				assert.InDelta(t, 42000.0, a.EstimatedMarketPrice, 0.001)
				assert.InDelta(t, 25.0, a.ProfitPotentialPct, 0.001)
				assert.Equal(t, domain.RiskLow, a.RiskLevel)
				assert.Equal(t, "buy", a.Recommendation)
				assert.Equal(t, fixedNow, a.EvaluatedAt)
				assert.InDelta(t, 45000.0, a.Context.AveragePrice, 0.001)
			},
		},
		{
			name:    "fenced json with clamped confidence",
			content: "```json\n{\"isGoodDeal\": false, \"confidence\": 1.7, \"riskLevel\": \"alto\"}\n```",
			want: func(t *testing.T, a domain.DealAssessment) {
				t.Helper()
				assert.False(t, a.IsGoodDeal)
				assert.InDelta(t, 1.0, a.Confidence, 0.0001)
				assert.Equal(t, domain.RiskHigh, a.RiskLevel)
			},
		},
		{
			name:         "malformed response degrades",
			content:      `{"isGoodDeal": tru`,
			wantDegraded: true,
		},
		{
			name:         "prose only degrades",
			content:      "I cannot evaluate this listing.",
			wantDegraded: true,
		},
		{
			name:         "backend error degrades",
			backendErr:   errors.New("connection refused"),
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := llmMocks.NewMockBackend(t)
			backend.EXPECT().
				Generate(mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
					return req.Format == llm.FormatJSON && req.SystemMsg != ""
				})).
				Return(llm.GenerateResponse{Content: tt.content}, tt.backendErr).
				Once()
			if tt.backendErr != nil {
				backend.EXPECT().Name().Return("mock").Maybe()
			}

			e := evaluate.NewLLMEvaluator(backend, evaluate.WithNowFunc(func() time.Time { return fixedNow }))
			a, err := e.Evaluate(context.Background(), testListing(), testContext())

			if tt.wantDegraded {
				require.ErrorIs(t, err, evaluate.ErrDegraded)
				assert.False(t, a.IsGoodDeal)
				assert.Zero(t, a.Confidence)
				assert.Contains(t, a.Explanation, "evaluation unavailable")
				assert.Equal(t, testContext().TopBrands, a.Context.TopBrands)
				return
			}
			require.NoError(t, err)
			tt.want(t, a)
		})
	}
}

func TestLLMEvaluator_RateLimitCancelled(t *testing.T) {
	t.Parallel()

	backend := llmMocks.NewMockBackend(t)
	backend.EXPECT().
		Generate(mock.Anything, mock.Anything).
		Return(llm.GenerateResponse{Content: `{"isGoodDeal": false}`}, nil).
		Once()

	e := evaluate.NewLLMEvaluator(backend, evaluate.WithRateLimit(0.001, 1))

	_, err := e.Evaluate(context.Background(), testListing(), testContext())
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Evaluate(ctx, testListing(), testContext())
	require.ErrorIs(t, err, evaluate.ErrDegraded)
}

type credBackend struct {
	llm.Backend
	err error
}

func (c credBackend) CheckCredentials() error { return c.err }

func TestLLMEvaluator_CheckCredentials(t *testing.T) {
	t.Parallel()

	missing := evaluate.NewLLMEvaluator(credBackend{err: llm.ErrMissingAPIKey})
	require.ErrorIs(t, missing.CheckCredentials(), llm.ErrMissingAPIKey)

	ok := evaluate.NewLLMEvaluator(credBackend{})
	require.NoError(t, ok.CheckCredentials())

	plain := evaluate.NewLLMEvaluator(llmMocks.NewMockBackend(t))
	require.NoError(t, plain.CheckCredentials())
}

func TestNormalizeRisk(t *testing.T) {
	t.Parallel()

	tests := map[string]domain.RiskLevel{
		"low":      domain.RiskLow,
		" Bajo ":   domain.RiskLow,
		"medio":    domain.RiskMedium,
		"MODERATE": domain.RiskMedium,
		"alto":     domain.RiskHigh,
		"":         domain.RiskHigh,
		"unknown":  domain.RiskHigh,
	}
	for in, want := range tests {
		assert.Equal(t, want, evaluate.NormalizeRisk(in), "input %q", in)
	}
}

func TestRenderDealPrompt(t *testing.T) {
	t.Parallel()

	l := testListing()
	l.Year = nil

	got, err := evaluate.RenderDealPrompt(l, testContext(), 20)
	require.NoError(t, err)

	assert.Contains(t, got, "S/ 45000")
	assert.Contains(t, got, "S/ 20000 - S/ 80000")
	assert.Contains(t, got, "toyota, hyundai")
	assert.Contains(t, got, "Title: Toyota Yaris 2018 automático")
	assert.Contains(t, got, "Year: not specified")
	assert.Contains(t, got, "minimum margin of 20%")
}

func TestLLMEvaluator_SetMinProfitMarginPct(t *testing.T) {
	t.Parallel()

	backend := llmMocks.NewMockBackend(t)
	backend.EXPECT().
		Generate(mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
			return strings.Contains(req.Prompt, "minimum margin of 30%")
		})).
		Return(llm.GenerateResponse{Content: `{"isGoodDeal": false}`}, nil).
		Once()

	e := evaluate.NewLLMEvaluator(backend)
	e.SetMinProfitMarginPct(30)
	e.SetMinProfitMarginPct(-1)

	_, err := e.Evaluate(context.Background(), testListing(), testContext())
	require.NoError(t, err)
}
