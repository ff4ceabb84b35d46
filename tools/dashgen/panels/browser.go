package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RenderDuration returns a timeseries panel showing page render latency.
func RenderDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Render Duration (p95)").
		Description("95th percentile headless browser page render time").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+jobSel("cdt_render_duration_seconds_bucket")+`[15m])) by (le))`,
			"p95", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(20, 45)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RenderFailures returns a timeseries panel showing render failures.
func RenderFailures() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Render Failures").
		Description("Pages that failed to load or timed out").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`cdt:render_failures:rate5m`, "failures/s", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ContextAveragePrice returns a stat panel showing the sampled market
// average and how often the default context was used.
func ContextAveragePrice() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Market Average").
		Description("Average price of the latest market context sample").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(jobSel("cdt_context_average_price"), "average", "A")).
		WithTarget(PromQuery(`increase(`+jobSel("cdt_context_fallback_total")+`[24h])`, "fallbacks 24h", "B")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeArea)
}
