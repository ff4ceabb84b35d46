// Package domain defines the core business types for the car deal tracker.
package domain

import (
	"time"
)

// Segment classifies a market by its average asking price.
type Segment string

// Segment constants.
const (
	SegmentEconomic Segment = "economic"
	SegmentMedium   Segment = "medium"
	SegmentPremium  Segment = "premium"
)

// RiskLevel is the evaluator's risk rating for a deal.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RunMode distinguishes scheduled/manual full runs from capped test runs.
type RunMode string

// Run mode constants.
const (
	RunModeFull RunMode = "full"
	RunModeTest RunMode = "test"
)

// LogType tags an activity log entry.
type LogType string

// Log type constants.
const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
)

// PriceRange is the observed min/max asking price of a sample.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MarketContext summarizes a reference sample of listings. It is the
// baseline every candidate is judged against during a run.
type MarketContext struct {
	AveragePrice         float64    `json:"average_price"`
	PriceRange           PriceRange `json:"price_range"`
	AverageYear          int        `json:"average_year"`
	TopBrands            []string   `json:"top_brands"`
	TotalListingsSampled int        `json:"total_listings_sampled"`
	Segment              Segment    `json:"segment"`
	ComputedAt           time.Time  `json:"computed_at"`
	Fallback             bool       `json:"fallback"`
}

// Clone returns a copy that shares no slices with c.
func (c MarketContext) Clone() MarketContext {
	c.TopBrands = append([]string(nil), c.TopBrands...)
	return c
}

// Listing is a candidate extracted from a rendered marketplace page.
type Listing struct {
	Identity     string    `json:"identity"`
	Title        string    `json:"title"`
	PriceText    string    `json:"price_text"`
	NumericPrice *float64  `json:"numeric_price,omitempty"`
	Year         *int      `json:"year,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Description  string    `json:"description"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Price returns the numeric price, treating an unknown price as zero.
func (l *Listing) Price() float64 {
	if l.NumericPrice == nil {
		return 0
	}
	return *l.NumericPrice
}

// DealAssessment is the normalized verdict of the deal evaluator.
type DealAssessment struct {
	IsGoodDeal           bool          `json:"is_good_deal"`
	Confidence           float64       `json:"confidence"`
	EstimatedMarketPrice float64       `json:"estimated_market_price"`
	ProfitPotentialPct   float64       `json:"profit_potential_pct"`
	RiskLevel            RiskLevel     `json:"risk_level"`
	Explanation          string        `json:"explanation"`
	MarketComparison     string        `json:"market_comparison"`
	Recommendation       string        `json:"recommendation"`
	EvaluatedAt          time.Time     `json:"evaluated_at"`
	Context              MarketContext `json:"context"`
}

// ProcessedRecord is what the dedup store keeps for an identity.
type ProcessedRecord struct {
	Identity       string         `json:"identity"`
	Listing        Listing        `json:"listing"`
	Assessment     DealAssessment `json:"assessment"`
	StoredAt       time.Time      `json:"stored_at"`
	InsertionOrder uint64         `json:"insertion_order"`
}

// RunStatistics is emitted once per pipeline run.
type RunStatistics struct {
	ID         string         `json:"id"`
	Mode       RunMode        `json:"mode"`
	TotalFound int            `json:"total_found"`
	Processed  int            `json:"processed"`
	SentCount  int            `json:"sent_count"`
	Duplicates int            `json:"duplicates"`
	Failed     int            `json:"failed"`
	AvgPrice   float64        `json:"avg_price"`
	RunAt      time.Time      `json:"run_at"`
	Duration   time.Duration  `json:"duration_ns"`
	Context    *MarketContext `json:"market_context,omitempty"`
}

// RunSummary accumulates RunStatistics across runs.
type RunSummary struct {
	TotalCars   int       `json:"total_cars"   db:"total_cars"`
	SentCount   int       `json:"sent_count"   db:"sent_count"`
	Executions  int       `json:"executions"   db:"executions"`
	AvgPrice    float64   `json:"avg_price"    db:"avg_price"`
	SuccessRate int       `json:"success_rate"`
	LastUpdate  time.Time `json:"last_update"  db:"last_update"`
}

// LogEntry is a single line of the activity log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp" db:"logged_at"`
	Message   string    `json:"message"   db:"message"`
	Type      LogType   `json:"type"      db:"type"`
}
