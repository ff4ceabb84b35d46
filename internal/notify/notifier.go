// Package notify defines the notification interface and implementations
// for deal delivery.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // fixed display timezone must resolve on minimal images

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const (
	// DefaultTimezone is the zone detection times are rendered in.
	DefaultTimezone = "America/Lima"

	timeLayout = "02/01/2006 15:04:05"
)

// DealAlert is everything a notifier needs to describe one deal.
type DealAlert struct {
	Listing    domain.Listing
	Assessment domain.DealAssessment
	Context    domain.MarketContext
	DetectedAt time.Time
}

// Notifier delivers deal alerts.
type Notifier interface {
	SendDeal(ctx context.Context, alert *DealAlert) error
}

// LoadLocation resolves name, falling back to DefaultTimezone when empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// FormatMessage renders alert as Telegram-flavoured Markdown.
func FormatMessage(alert *DealAlert, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	l, a, mc := alert.Listing, alert.Assessment, alert.Context

	var b strings.Builder
	b.WriteString("🚗 *DEAL DETECTED*\n\n")
	fmt.Fprintf(&b, "*%s*\n\n", escapeMarkdown(l.Title))

	fmt.Fprintf(&b, "💰 *Price:* %s\n", escapeMarkdown(l.PriceText))
	fmt.Fprintf(&b, "📅 *Year:* %s\n", yearText(l.Year))
	fmt.Fprintf(&b, "🎯 *Confidence:* %d%%\n", int(a.Confidence*100+0.5))
	fmt.Fprintf(&b, "📊 *Estimated market price:* %s\n", money(a.EstimatedMarketPrice))
	fmt.Fprintf(&b, "💹 *Profit potential:* %s\n", percent(a.ProfitPotentialPct))
	fmt.Fprintf(&b, "⚠️ *Risk:* %s\n\n", orNA(string(a.RiskLevel)))

	b.WriteString("*Market context:*\n")
	fmt.Fprintf(&b, "📈 Segment average: S/ %.0f\n", mc.AveragePrice)
	fmt.Fprintf(&b, "🏷️ Segment: %s\n", mc.Segment)
	fmt.Fprintf(&b, "🚙 Popular brands: %s\n\n", strings.Join(firstN(mc.TopBrands, 3), ", "))

	fmt.Fprintf(&b, "*Analysis:*\n%s\n\n", escapeMarkdown(orDefault(a.Explanation, "No analysis available")))
	fmt.Fprintf(&b, "*Market comparison:*\n%s\n\n",
		escapeMarkdown(orDefault(a.MarketComparison, "No comparison available")))
	fmt.Fprintf(&b, "*Recommendation:*\n%s\n\n",
		escapeMarkdown(orDefault(a.Recommendation, "Evaluate against your own criteria")))

	fmt.Fprintf(&b, "🔗 [View listing](%s)\n\n", l.Identity)
	fmt.Fprintf(&b, "⏰ Detected: %s", alert.DetectedAt.In(loc).Format(timeLayout))

	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func yearText(y *int) string {
	if y == nil {
		return "not specified"
	}
	return fmt.Sprintf("%d", *y)
}

func money(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("S/ %.0f", v)
}

func percent(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", v)
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
