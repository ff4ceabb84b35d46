package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
)

const (
	colorGreen  = 0x2ECC71 // confidence 0.8+
	colorYellow = 0xF1C40F // confidence 0.6-0.79
	colorOrange = 0xE67E22 // below 0.6
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	loc        *time.Location
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		loc:        time.UTC,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithDiscordLocation sets the timezone detection times are shown in.
func WithDiscordLocation(loc *time.Location) DiscordOption {
	return func(d *DiscordNotifier) {
		d.loc = loc
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// SendDeal sends the alert as a single Discord embed.
func (d *DiscordNotifier) SendDeal(ctx context.Context, alert *DealAlert) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(alert, d.loc)},
	}
	return d.post(ctx, payload)
}

func buildEmbed(alert *DealAlert, loc *time.Location) discordEmbed {
	l, a, mc := alert.Listing, alert.Assessment, alert.Context

	embed := discordEmbed{
		Title:       fmt.Sprintf("Deal: %s", l.Title),
		URL:         l.Identity,
		Color:       confidenceColor(a.Confidence),
		Description: orDefault(a.Explanation, "No analysis available"),
		Fields: []discordEmbedField{
			{Name: "Price", Value: orNA(l.PriceText), Inline: true},
			{Name: "Year", Value: yearText(l.Year), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%d%%", int(a.Confidence*100+0.5)), Inline: true},
			{Name: "Est. Market Price", Value: money(a.EstimatedMarketPrice), Inline: true},
			{Name: "Profit Potential", Value: percent(a.ProfitPotentialPct), Inline: true},
			{Name: "Risk", Value: orNA(string(a.RiskLevel)), Inline: true},
			{Name: "Segment", Value: fmt.Sprintf("%s (avg S/ %.0f)", mc.Segment, mc.AveragePrice), Inline: true},
			{Name: "Recommendation", Value: orDefault(a.Recommendation, "Evaluate against your own criteria")},
		},
		Footer: &discordFooter{Text: "Detected " + alert.DetectedAt.In(loc).Format(timeLayout)},
	}

	if l.ImageURL != nil && *l.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: *l.ImageURL}
	}

	return embed
}

func confidenceColor(c float64) int {
	switch {
	case c >= 0.8:
		return colorGreen
	case c >= 0.6:
		return colorYellow
	default:
		return colorOrange
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
