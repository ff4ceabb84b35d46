package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// EvaluationLatency returns a timeseries panel showing p95 evaluator latency.
func EvaluationLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Evaluation Latency (p95)").
		Description("95th percentile LLM evaluation time").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`cdt:evaluation_duration:p95_5m`, "p95", "A")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(10, 30)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// DegradedEvaluations returns a timeseries panel showing evaluations that
// fell back to the degraded assessment.
func DegradedEvaluations() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Degraded Evaluations").
		Description("Evaluations that produced the fallback assessment").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`cdt:evaluation_degraded:rate5m`, "degraded/s", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ConfidenceDistribution returns a bar gauge panel showing the distribution
// of evaluator confidence across histogram buckets.
func ConfidenceDistribution() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Confidence Distribution").
		Description("Evaluator confidence (0-1) over the last day").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("cdt_evaluation_confidence_bucket")+`[24h])) by (le)`,
			"{{le}}", "A",
		)).
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}
