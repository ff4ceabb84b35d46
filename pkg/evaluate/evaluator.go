// Package evaluate scores a listing against a market context using an LLM
// backend and normalizes the answer into a DealAssessment.
package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/car-deal-tracker/pkg/llm"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// DefaultMinProfitMarginPct is the resale margin the prompt asks for.
const DefaultMinProfitMarginPct = 15

// ErrDegraded marks an assessment that fell back to the default verdict
// because the backend failed or answered with something unusable.
var ErrDegraded = errors.New("evaluation degraded")

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// LLMEvaluator asks an LLM backend whether a listing is a good deal.
type LLMEvaluator struct {
	backend            llm.Backend
	limiter            *rate.Limiter
	mu                 sync.RWMutex
	minProfitMarginPct float64
	temperature        float64
	maxTokens          int
	now                func() time.Time
	logger             *slog.Logger
}

// Option configures the LLMEvaluator.
type Option func(*LLMEvaluator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *LLMEvaluator) {
		e.logger = l
	}
}

// WithRateLimit caps backend calls to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *LLMEvaluator) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMinProfitMarginPct sets the margin threshold stated in the prompt.
func WithMinProfitMarginPct(pct float64) Option {
	return func(e *LLMEvaluator) {
		if pct > 0 {
			e.minProfitMarginPct = pct
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *LLMEvaluator) {
		e.temperature = t
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) Option {
	return func(e *LLMEvaluator) {
		e.maxTokens = n
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(e *LLMEvaluator) {
		e.now = f
	}
}

// NewLLMEvaluator creates an evaluator on top of backend.
func NewLLMEvaluator(backend llm.Backend, opts ...Option) *LLMEvaluator {
	e := &LLMEvaluator{
		backend:            backend,
		minProfitMarginPct: DefaultMinProfitMarginPct,
		temperature:        0.3,
		maxTokens:          300,
		now:                time.Now,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetMinProfitMarginPct changes the margin threshold for later evaluations.
// Non-positive values are ignored.
func (e *LLMEvaluator) SetMinProfitMarginPct(pct float64) {
	if pct <= 0 {
		return
	}
	e.mu.Lock()
	e.minProfitMarginPct = pct
	e.mu.Unlock()
}

// CheckCredentials reports whether the backend can serve requests.
func (e *LLMEvaluator) CheckCredentials() error {
	if cc, ok := e.backend.(llm.CredentialChecker); ok {
		return cc.CheckCredentials()
	}
	return nil
}

// Evaluate scores l against mc. It always returns a usable assessment: on
// any failure the result is the default non-deal verdict and the error
// wraps ErrDegraded.
func (e *LLMEvaluator) Evaluate(
	ctx context.Context,
	l domain.Listing,
	mc domain.MarketContext,
) (domain.DealAssessment, error) {
	e.mu.RLock()
	margin := e.minProfitMarginPct
	e.mu.RUnlock()

	prompt, err := RenderDealPrompt(l, mc, margin)
	if err != nil {
		return e.degraded(mc, err)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.degraded(mc, fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	resp, err := e.backend.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		SystemMsg:   systemMsg,
		Format:      llm.FormatJSON,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return e.degraded(mc, fmt.Errorf("calling %s: %w", e.backend.Name(), err))
	}

	e.logger.Debug("llm evaluation",
		"identity", l.Identity,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	a, err := ParseAssessment(resp.Content)
	if err != nil {
		return e.degraded(mc, err)
	}

	a.EvaluatedAt = e.now()
	a.Context = mc.Clone()

	return a, nil
}

func (e *LLMEvaluator) degraded(mc domain.MarketContext, cause error) (domain.DealAssessment, error) {
	a := Default(mc, cause)
	a.EvaluatedAt = e.now()
	return a, fmt.Errorf("%w: %w", ErrDegraded, cause)
}

// Default is the non-deal verdict used whenever evaluation fails.
func Default(mc domain.MarketContext, cause error) domain.DealAssessment {
	explanation := "evaluation unavailable"
	if cause != nil {
		explanation += ": " + cause.Error()
	}
	return domain.DealAssessment{
		IsGoodDeal:  false,
		Confidence:  0,
		RiskLevel:   domain.RiskHigh,
		Explanation: explanation,
		Context:     mc.Clone(),
	}
}

// assessmentJSON is the wire shape the prompt asks for.
type assessmentJSON struct {
	IsGoodDeal           bool    `json:"isGoodDeal"`
	Confidence           float64 `json:"confidence"`
	EstimatedMarketPrice float64 `json:"estimatedMarketPrice"`
	ProfitPotential      float64 `json:"profitPotential"`
	RiskLevel            string  `json:"riskLevel"`
	Explanation          string  `json:"explanation"`
	MarketComparison     string  `json:"marketComparison"`
	Recommendation       string  `json:"recommendation"`
}

// ParseAssessment decodes a model response, tolerating markdown code fences
// and prose around the JSON object.
func ParseAssessment(content string) (domain.DealAssessment, error) {
	raw := extractJSON(content)
	if raw == "" {
		return domain.DealAssessment{}, errors.New("no JSON object in response")
	}

	var aj assessmentJSON
	if err := json.Unmarshal([]byte(raw), &aj); err != nil {
		return domain.DealAssessment{}, fmt.Errorf("parsing response JSON: %w", err)
	}

	return domain.DealAssessment{
		IsGoodDeal:           aj.IsGoodDeal,
		Confidence:           clamp01(aj.Confidence),
		EstimatedMarketPrice: aj.EstimatedMarketPrice,
		ProfitPotentialPct:   aj.ProfitPotential,
		RiskLevel:            NormalizeRisk(aj.RiskLevel),
		Explanation:          strings.TrimSpace(aj.Explanation),
		MarketComparison:     strings.TrimSpace(aj.MarketComparison),
		Recommendation:       strings.TrimSpace(aj.Recommendation),
	}, nil
}

// NormalizeRisk maps English and Spanish risk labels onto RiskLevel.
// Anything unrecognized is treated as high risk.
func NormalizeRisk(s string) domain.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "bajo", "baja":
		return domain.RiskLow
	case "medium", "moderate", "medio", "media", "moderado":
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
