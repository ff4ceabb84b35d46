package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RunsByOutcome returns a timeseries panel of completed runs split by mode
// and outcome.
func RunsByOutcome() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Runs").
		Description("Completed runs per hour by mode and outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("cdt_runs_total")+`[1h])) by (mode, outcome)`,
			"{{mode}} {{outcome}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("sum")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// ListingFlow returns a timeseries panel comparing candidates found,
// duplicates skipped, and listings processed.
func ListingFlow() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Listing Flow").
		Description("Candidates found, duplicates skipped and listings processed").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(rate(`+jobSel("cdt_candidates_found_total")+`[5m]))`, "found", "A")).
		WithTarget(PromQuery(`sum(rate(`+jobSel("cdt_duplicates_skipped_total")+`[5m]))`, "duplicates", "B")).
		WithTarget(PromQuery(`cdt:listings_processed:rate5m`, "processed", "C")).
		WithTarget(PromQuery(`cdt:listing_failures:rate5m`, "failed", "D")).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RunDuration returns a timeseries panel showing the p95 run duration per mode.
func RunDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Run Duration (p95)").
		Description("95th percentile run duration by mode").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+jobSel("cdt_run_duration_seconds_bucket")+`[1h])) by (le, mode))`,
			"{{mode}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// NextRunStat returns a stat panel showing time until the next scheduled run.
func NextRunStat() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Next Run").
		Description("Time until the next scheduled run").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(jobSel("cdt_scheduler_next_run_timestamp_seconds")+` - time()`, "", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// RejectedRuns returns a stat panel counting runs refused because another
// run was active.
func RejectedRuns() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Rejected Runs (24h)").
		Description("Run requests refused while another run was in progress").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`increase(`+jobSel("cdt_runs_rejected_total")+`[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

// GoodDealsStat returns a stat panel counting good deals in the last day.
func GoodDealsStat() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Good Deals (24h)").
		Description("Listings the evaluator marked as good deals").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`increase(`+jobSel("cdt_good_deals_total")+`[24h])`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// DedupEntries returns a stat panel with the dedup store size and
// evictions.
func DedupEntries() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Dedup Store").
		Description("Processed listing IDs held and evicted").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`max(`+jobSel("cdt_dedup_entries")+`)`, "entries", "A")).
		WithTarget(PromQuery(`max(`+jobSel("cdt_dedup_evictions")+`)`, "evictions", "B")).
		WithTarget(PromQuery(`increase(`+jobSel("cdt_dedup_swept_total")+`[24h])`, "swept 24h", "C")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeNone)
}
