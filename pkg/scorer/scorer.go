// Package score implements a deterministic, offline deal evaluator: a
// listing is a deal when it is priced under the market average and its
// title names one of the market's top brands.
package score

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const (
	dealConfidence   = 0.85
	noDealConfidence = 0.45

	affordableProfitPct = 20
	expensiveProfitPct  = 5
)

// RuleEvaluator scores listings without calling any external service.
// It satisfies the same contract as the LLM evaluator.
type RuleEvaluator struct {
	now func() time.Time
}

// Option configures the RuleEvaluator.
type Option func(*RuleEvaluator)

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(r *RuleEvaluator) {
		r.now = f
	}
}

// NewRuleEvaluator creates a RuleEvaluator.
func NewRuleEvaluator(opts ...Option) *RuleEvaluator {
	r := &RuleEvaluator{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckCredentials always succeeds.
func (*RuleEvaluator) CheckCredentials() error {
	return nil
}

// Evaluate applies the affordable-and-popular rule.
func (r *RuleEvaluator) Evaluate(
	_ context.Context,
	l domain.Listing,
	mc domain.MarketContext,
) (domain.DealAssessment, error) {
	affordable := l.Price() < mc.AveragePrice
	popular := PopularBrand(l.Title, mc.TopBrands)
	deal := affordable && popular

	a := domain.DealAssessment{
		IsGoodDeal:           deal,
		Confidence:           noDealConfidence,
		EstimatedMarketPrice: mc.AveragePrice,
		ProfitPotentialPct:   expensiveProfitPct,
		RiskLevel:            domain.RiskMedium,
		Recommendation:       "Evaluate carefully",
		EvaluatedAt:          r.now(),
		Context:              mc.Clone(),
	}
	if deal {
		a.Confidence = dealConfidence
		a.Recommendation = "Strong buy opportunity"
	}
	if affordable {
		a.ProfitPotentialPct = affordableProfitPct
		a.RiskLevel = domain.RiskLow
	}

	a.Explanation = fmt.Sprintf("price %s, brand %s",
		pick(affordable, "competitive", "high"),
		pick(popular, "popular", "less in demand"),
	)
	a.MarketComparison = fmt.Sprintf("price %s market average (S/ %.0f)",
		pick(affordable, "below", "above"),
		mc.AveragePrice,
	)

	return a, nil
}

// PopularBrand reports whether title mentions any of brands,
// case-insensitively.
func PopularBrand(title string, brands []string) bool {
	lower := strings.ToLower(title)
	for _, b := range brands {
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			return true
		}
	}
	return false
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
