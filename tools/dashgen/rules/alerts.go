package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// car-deal-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cdt-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cdt-alerts",
					Rules: []Rule{
						{
							Alert: "CdtDown",
							Expr:  `absent(up{job="car-deal-tracker"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Car Deal Tracker is down",
								"description": "The car-deal-tracker job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "CdtReadinessDown",
							Expr:  `cdt_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Car Deal Tracker readiness check is failing",
								"description": "The run history store has been unreachable for more than 2 minutes.",
							},
						},
						{
							Alert: "CdtHighErrorRate",
							Expr:  `cdt:http_errors:rate5m / cdt:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on Car Deal Tracker",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "CdtRunsStalled",
							Expr:  `time() - cdt_last_run_timestamp_seconds > 3 * 3600`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "No analysis run has completed recently",
								"description": "No run has finished in the last 3 hours. Check the scheduler and the browser.",
							},
						},
						{
							Alert: "CdtRunErrors",
							Expr:  `increase(cdt_runs_total{outcome="error"}[1h]) > 2`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Analysis runs are failing",
								"description": "More than two runs ended with an error in the last hour.",
							},
						},
						{
							Alert: "CdtRenderFailures",
							Expr:  `cdt:render_failures:rate5m > 0.05`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Marketplace pages are failing to render",
								"description": "The headless browser keeps failing to load marketplace pages. Selectors or login may be stale.",
							},
						},
						{
							Alert: "CdtEvaluationDegraded",
							Expr:  `cdt:evaluation_degraded:rate5m > 0.05`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "LLM evaluations are degrading",
								"description": "Evaluations are falling back to the default assessment. Check the LLM provider.",
							},
						},
						{
							Alert: "CdtNotificationFailures",
							Expr:  `increase(cdt_notification_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more deal alerts (Telegram or Discord) have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
