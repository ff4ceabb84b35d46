package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func testAlert(confidence float64) DealAlert {
	price := 38000.0
	year := 2018
	img := "https://cdn.example/yaris.jpg"
	return DealAlert{
		Listing: domain.Listing{
			Identity:     "https://www.facebook.com/marketplace/item/123/",
			Title:        "Toyota Yaris_2018 *full*",
			PriceText:    "S/ 38,000",
			NumericPrice: &price,
			Year:         &year,
			ImageURL:     &img,
		},
		Assessment: domain.DealAssessment{
			IsGoodDeal:           true,
			Confidence:           confidence,
			EstimatedMarketPrice: 45000,
			ProfitPotentialPct:   18,
			RiskLevel:            domain.RiskLow,
			Explanation:          "Below segment average",
			Recommendation:       "Buy",
		},
		Context: domain.MarketContext{
			AveragePrice: 45000,
			Segment:      domain.SegmentMedium,
			TopBrands:    []string{"toyota", "hyundai", "nissan", "kia"},
		},
		// 17:30 UTC is 12:30 in Lima (UTC-5, no DST).
		DetectedAt: time.Date(2026, 3, 1, 17, 30, 5, 0, time.UTC),
	}
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	loc, err := LoadLocation("")
	require.NoError(t, err)

	alert := testAlert(0.854)
	msg := FormatMessage(&alert, loc)

	assert.Contains(t, msg, `*Toyota Yaris\_2018 \*full\**`)
	assert.Contains(t, msg, "*Price:* S/ 38,000")
	assert.Contains(t, msg, "*Year:* 2018")
	assert.Contains(t, msg, "*Confidence:* 85%")
	assert.Contains(t, msg, "*Estimated market price:* S/ 45000")
	assert.Contains(t, msg, "*Profit potential:* 18%")
	assert.Contains(t, msg, "*Risk:* low")
	assert.Contains(t, msg, "Segment average: S/ 45000")
	assert.Contains(t, msg, "Popular brands: toyota, hyundai, nissan\n")
	assert.Contains(t, msg, "No comparison available", "missing comparison falls back")
	assert.Contains(t, msg, "[View listing](https://www.facebook.com/marketplace/item/123/)")
	assert.Contains(t, msg, "Detected: 01/03/2026 12:30:05")
}

func TestFormatMessage_MissingFields(t *testing.T) {
	t.Parallel()

	alert := testAlert(0)
	alert.Listing.Year = nil
	alert.Assessment = domain.DealAssessment{}

	msg := FormatMessage(&alert, nil)

	assert.Contains(t, msg, "*Year:* not specified")
	assert.Contains(t, msg, "*Estimated market price:* N/A")
	assert.Contains(t, msg, "*Profit potential:* N/A")
	assert.Contains(t, msg, "*Risk:* N/A")
	assert.Contains(t, msg, "No analysis available")
	assert.Contains(t, msg, "Detected: 01/03/2026 17:30:05")
}

func TestLoadLocation_Invalid(t *testing.T) {
	t.Parallel()

	_, err := LoadLocation("Mars/Olympus_Mons")
	require.Error(t, err)
}

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) SendDeal(context.Context, *DealAlert) error {
	f.calls++
	return f.err
}

func TestMulti_SendDeal(t *testing.T) {
	t.Parallel()

	ok := &fakeNotifier{}
	bad := &fakeNotifier{err: errors.New("boom")}
	alert := testAlert(0.9)

	err := Multi{bad, ok}.SendDeal(context.Background(), &alert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, ok.calls, "later notifiers still run")

	require.NoError(t, Multi{ok}.SendDeal(context.Background(), &alert))
}

func TestNoOpNotifier_SendDeal(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	alert := testAlert(0.9)
	require.NoError(t, n.SendDeal(context.Background(), &alert))
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
	_ Notifier = Multi(nil)
)
