// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/car-deal-tracker/tools/dashgen/panels"
)

// BuildOverview constructs the CDT Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("CDT Overview").
		Uid("cdt-overview").
		Tags([]string{"cdt", "car-deal-tracker"}).
		Refresh("1m").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.LastRunStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("Runs").
		WithPanel(panels.NextRunStat()).
		WithPanel(panels.RejectedRuns()).
		WithPanel(panels.GoodDealsStat()).
		WithPanel(panels.DedupEntries()).
		WithPanel(panels.RunsByOutcome()).
		WithPanel(panels.ListingFlow()).
		WithPanel(panels.RunDuration()))

	b.WithRow(dashboard.NewRowBuilder("Browser & Market").
		WithPanel(panels.RenderDuration()).
		WithPanel(panels.RenderFailures()).
		WithPanel(panels.ContextAveragePrice()))

	b.WithRow(dashboard.NewRowBuilder("Evaluation").
		WithPanel(panels.EvaluationLatency()).
		WithPanel(panels.DegradedEvaluations()).
		WithPanel(panels.ConfidenceDistribution()))

	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.NotificationsRate()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
