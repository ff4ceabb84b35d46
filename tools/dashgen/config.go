package main

import "errors"

// KnownMetrics is the set of metric names exported by car-deal-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"cdt_http_request_duration_seconds_bucket": true,
	"cdt_http_requests_total":                  true,

	// Health metrics.
	"cdt_healthz_up": true,
	"cdt_readyz_up":  true,

	// Run metrics.
	"cdt_runs_total":                   true,
	"cdt_run_duration_seconds_bucket":  true,
	"cdt_runs_rejected_total":          true,
	"cdt_last_run_timestamp_seconds":   true,
	"cdt_listings_processed_total":     true,
	"cdt_candidates_found_total":       true,
	"cdt_duplicates_skipped_total":     true,
	"cdt_listing_failures_total":       true,
	"cdt_good_deals_total":             true,
	"cdt_evaluation_degraded_total":    true,
	"cdt_evaluation_confidence_bucket": true,

	// Scheduler metrics.
	"cdt_scheduler_next_run_timestamp_seconds":   true,
	"cdt_scheduler_next_sweep_timestamp_seconds": true,

	// Browser and market context metrics.
	"cdt_render_duration_seconds_bucket": true,
	"cdt_render_failures_total":          true,
	"cdt_context_fallback_total":         true,
	"cdt_context_average_price":          true,

	// Evaluation metrics.
	"cdt_evaluation_duration_seconds_bucket": true,

	// Notification metrics.
	"cdt_notifications_sent_total":             true,
	"cdt_notification_failures_total":          true,
	"cdt_notification_duration_seconds_bucket": true,

	// Dedup metrics.
	"cdt_dedup_entries":     true,
	"cdt_dedup_evictions":   true,
	"cdt_dedup_swept_total": true,

	// Recording rules.
	"cdt:http_requests:rate5m":         true,
	"cdt:http_errors:rate5m":           true,
	"cdt:listings_processed:rate5m":    true,
	"cdt:listing_failures:rate5m":      true,
	"cdt:render_failures:rate5m":       true,
	"cdt:evaluation_degraded:rate5m":   true,
	"cdt:evaluation_duration:p95_5m":   true,
	"cdt:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
