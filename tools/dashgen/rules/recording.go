package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cdt-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cdt-recording",
					Rules: []Rule{
						{
							Record: "cdt:http_requests:rate5m",
							Expr:   `sum(rate(cdt_http_requests_total[5m]))`,
						},
						{
							Record: "cdt:http_errors:rate5m",
							Expr:   `sum(rate(cdt_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "cdt:listings_processed:rate5m",
							Expr:   `sum(rate(cdt_listings_processed_total[5m]))`,
						},
						{
							Record: "cdt:listing_failures:rate5m",
							Expr:   `sum(rate(cdt_listing_failures_total[5m]))`,
						},
						{
							Record: "cdt:render_failures:rate5m",
							Expr:   `sum(rate(cdt_render_failures_total[5m]))`,
						},
						{
							Record: "cdt:evaluation_degraded:rate5m",
							Expr:   `sum(rate(cdt_evaluation_degraded_total[5m]))`,
						},
						{
							Record: "cdt:evaluation_duration:p95_5m",
							Expr:   `histogram_quantile(0.95, sum(rate(cdt_evaluation_duration_seconds_bucket[5m])) by (le))`,
						},
						{
							Record: "cdt:notification_duration:p95_5m",
							Expr:   `histogram_quantile(0.95, sum(rate(cdt_notification_duration_seconds_bucket[5m])) by (le))`,
						},
					},
				},
			},
		},
	}
}
