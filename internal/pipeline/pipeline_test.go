package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
	"github.com/donaldgifford/car-deal-tracker/internal/notify"
	notifyMocks "github.com/donaldgifford/car-deal-tracker/internal/notify/mocks"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	"github.com/donaldgifford/car-deal-tracker/pkg/evaluate"
	"github.com/donaldgifford/car-deal-tracker/pkg/llm"
	llmMocks "github.com/donaldgifford/car-deal-tracker/pkg/llm/mocks"
	score "github.com/donaldgifford/car-deal-tracker/pkg/scorer"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const profileHTML = `<html><body>
<div role="article"><a href="/marketplace/item/100/"><h3>Toyota Corolla 2018 sedan</h3><span>S/ 40,000</span></a></div>
<div role="article"><a href="/marketplace/item/101/"><h3>Hyundai Tucson 2017 SUV</h3><span>S/ 50,000</span></a></div>
<div role="article"><a href="/marketplace/item/102/"><h3>Toyota Rav4 2016 SUV</h3><span>S/ 45,000</span></a></div>
</body></html>`

// Three candidates, listed out of price order. Yaris and Accent are popular
// brands under the average; the Rio is under the average but not popular.
const searchHTML = `<html><body>
<div role="article"><a href="/marketplace/item/3/?ref=search"><h3>Kia Rio 2018 sedan full</h3><span>S/ 38,000</span></a></div>
<div role="article"><a href="/marketplace/item/1/"><h3>Toyota Yaris 2019 sedan</h3><span>S/ 30,000</span></a></div>
<div role="article"><a href="/marketplace/item/2/"><h3>Hyundai Accent 2017 sedan</h3><span>S/ 35,000</span></a></div>
</body></html>`

var searchURL = BuildSearchURL(DefaultMarketplaceURL, DefaultTargetLocation, DefaultSearchQuery)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []domain.RunStatistics
	logs []domain.LogEntry
}

func (r *fakeRecorder) RecordRun(_ context.Context, s domain.RunStatistics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
	return nil
}

func (r *fakeRecorder) AppendLog(_ context.Context, e domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, e)
	return nil
}

type fixture struct {
	o        *Orchestrator
	renderer *render.StaticRenderer
	store    *dedup.Store
	recorder *fakeRecorder
}

func newFixture(t *testing.T, ev Evaluator, n notify.Notifier, opts ...Option) fixture {
	t.Helper()

	r := render.NewStaticRenderer(map[string]string{
		DefaultReferenceProfileURL: profileHTML,
		searchURL:                  searchHTML,
	})
	store := dedup.New(100, dedup.WithLogger(quietLogger()), dedup.WithNowFunc(func() time.Time { return fixedNow }))
	rec := &fakeRecorder{}

	base := []Option{
		WithLogger(quietLogger()),
		WithRecorder(rec),
		WithNowFunc(func() time.Time { return fixedNow }),
		WithIDFunc(func() string { return "run-1" }),
	}
	o := New(r, ev, n, store, append(base, opts...)...)

	return fixture{o: o, renderer: r, store: store, recorder: rec}
}

func assertSessionsReleased(t *testing.T, r *render.StaticRenderer) {
	t.Helper()
	opened, closed := r.Sessions()
	assert.Equal(t, opened, closed, "every browser session is closed")
}

func TestFullRun_EndToEnd(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	var sent []string
	n.EXPECT().
		SendDeal(mock.Anything, mock.Anything).
		Run(func(_ context.Context, a *notify.DealAlert) {
			sent = append(sent, a.Listing.Title)
		}).
		Return(nil).
		Times(2)

	f := newFixture(t, score.NewRuleEvaluator(), n)

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", stats.ID)
	assert.Equal(t, domain.RunModeFull, stats.Mode)
	assert.Equal(t, 3, stats.TotalFound)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.SentCount)
	assert.Zero(t, stats.Duplicates)
	assert.Zero(t, stats.Failed)
	assert.InDelta(t, 34333.33, stats.AvgPrice, 0.01)
	require.NotNil(t, stats.Context)
	assert.InDelta(t, 45000, stats.Context.AveragePrice, 0.001)
	assert.False(t, stats.Context.Fallback)

	// Cheapest first.
	assert.Equal(t, []string{"Toyota Yaris 2019 sedan", "Hyundai Accent 2017 sedan"}, sent)

	assert.Equal(t, StateDone, f.o.State())
	assert.Equal(t, 3, f.store.Len())
	assert.True(t, f.store.Has("https://www.facebook.com/marketplace/item/3/"))
	assertSessionsReleased(t, f.renderer)

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, 2, f.recorder.runs[0].SentCount)

	// A rerun over the same page notifies nobody.
	again, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, again.TotalFound)
	assert.Zero(t, again.Processed)
	assert.Zero(t, again.SentCount)
	assert.Equal(t, 3, again.Duplicates)
	assertSessionsReleased(t, f.renderer)
}

func TestTestRun_Limit(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Once()

	f := newFixture(t, score.NewRuleEvaluator(), n)

	stats, err := f.o.TestRun(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RunModeTest, stats.Mode)
	assert.Equal(t, 3, stats.TotalFound)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.SentCount)
}

func TestTestRun_DefaultLimit(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil)

	f := newFixture(t, score.NewRuleEvaluator(), n, WithTestRunLimit(2))

	stats, err := f.o.TestRun(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
}

type failingCreds struct {
	score.RuleEvaluator
}

func (failingCreds) CheckCredentials() error { return llm.ErrMissingAPIKey }

func TestRun_SetupFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &failingCreds{}, notifyMocks.NewMockNotifier(t))

	_, err := f.o.FullRun(context.Background())
	require.ErrorIs(t, err, ErrSetup)
	require.ErrorIs(t, err, llm.ErrMissingAPIKey)

	assert.Equal(t, StateError, f.o.State())
	opened, _ := f.renderer.Sessions()
	assert.Zero(t, opened, "no browser is started before credentials check out")
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.recorder.runs)
	require.NotEmpty(t, f.recorder.logs)
	assert.Equal(t, domain.LogError, f.recorder.logs[0].Type)

	st := f.o.Status()
	assert.False(t, st.Running)
	assert.Contains(t, st.LastError, "missing")
}

func TestRun_ExtractionFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))
	f.renderer.Fail(searchURL, errors.New("net::ERR_TIMED_OUT"))

	_, err := f.o.FullRun(context.Background())
	require.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, StateError, f.o.State())
	assertSessionsReleased(t, f.renderer)

	_, ok := f.o.MarketContext()
	assert.True(t, ok, "context phase completed before extraction failed")
}

func TestRun_ContextFallback(t *testing.T) {
	t.Parallel()

	before := ptestutil.ToFloat64(metrics.ContextFallbackTotal)

	n := notifyMocks.NewMockNotifier(t)
	// The default context lists kia among the popular brands.
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Times(3)

	f := newFixture(t, score.NewRuleEvaluator(), n)
	f.renderer.Fail(DefaultReferenceProfileURL, errors.New("login wall"))

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.Context)
	assert.True(t, stats.Context.Fallback)
	assert.InDelta(t, 45000, stats.Context.AveragePrice, 0.001)
	assert.Equal(t, 3, stats.SentCount)
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.ContextFallbackTotal), before+1)
}

func TestRun_DegradedEvaluation(t *testing.T) {
	t.Parallel()

	backend := llmMocks.NewMockBackend(t)
	backend.EXPECT().
		Generate(mock.Anything, mock.Anything).
		Return(llm.GenerateResponse{Content: "I think this car is great!"}, nil).
		Times(3)
	backend.EXPECT().Name().Return("mock").Maybe()

	// No notification may be sent for a degraded verdict.
	n := notifyMocks.NewMockNotifier(t)

	f := newFixture(t, evaluate.NewLLMEvaluator(backend, evaluate.WithLogger(quietLogger())), n)

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.SentCount)
	assert.Zero(t, stats.Failed)

	rec, ok := f.store.Get("https://www.facebook.com/marketplace/item/1/")
	require.True(t, ok)
	assert.False(t, rec.Assessment.IsGoodDeal)
	assert.Zero(t, rec.Assessment.Confidence)
	assert.Contains(t, rec.Assessment.Explanation, "evaluation unavailable")
}

func TestRun_NotifierFailureContinues(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(errors.New("telegram down")).Once()
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Once()

	f := newFixture(t, score.NewRuleEvaluator(), n)

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.SentCount)
	assert.Equal(t, 1, stats.Failed)
}

type panickyEvaluator struct {
	score.RuleEvaluator
}

func (p *panickyEvaluator) Evaluate(
	ctx context.Context,
	l domain.Listing,
	mc domain.MarketContext,
) (domain.DealAssessment, error) {
	if strings.Contains(l.Identity, "/item/2/") {
		panic("boom")
	}
	return p.RuleEvaluator.Evaluate(ctx, l, mc)
}

func TestRun_PanicRecovered(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Once()

	f := newFixture(t, &panickyEvaluator{RuleEvaluator: *score.NewRuleEvaluator()}, n)

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.SentCount)
	assert.False(t, f.store.Has("https://www.facebook.com/marketplace/item/2/"))
}

func TestRun_MaxPriceSetting(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Once()

	s := DefaultSettings()
	s.MaxPrice = 32000
	f := newFixture(t, score.NewRuleEvaluator(), n, WithSettings(s))

	stats, err := f.o.FullRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFound)
}

func TestRun_InProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	f.o.runMu.Lock()
	defer f.o.runMu.Unlock()

	_, err := f.o.FullRun(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)

	_, err = f.o.TestRun(context.Background(), 1)
	require.ErrorIs(t, err, ErrRunInProgress)

	_, err = f.o.RefreshContext(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.o.FullRun(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, f.o.State())
	assertSessionsReleased(t, f.renderer)
}

func TestRefreshContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	_, ok := f.o.MarketContext()
	assert.False(t, ok)

	mc, err := f.o.RefreshContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"toyota", "hyundai"}, mc.TopBrands)
	assert.Equal(t, 3, mc.TotalListingsSampled)
	assert.Equal(t, domain.SegmentMedium, mc.Segment)

	cached, ok := f.o.MarketContext()
	require.True(t, ok)
	assert.Equal(t, mc, cached)

	cached.TopBrands[0] = "changed"
	again, _ := f.o.MarketContext()
	assert.Equal(t, "toyota", again.TopBrands[0])

	assertSessionsReleased(t, f.renderer)
	require.Len(t, f.recorder.logs, 1)
	assert.Equal(t, domain.LogInfo, f.recorder.logs[0].Type)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	bad := DefaultSettings()
	bad.MaxItemsPerRun = 0
	bad.SearchQuery = " "
	err := f.o.UpdateSettings(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_items_per_run")
	assert.Contains(t, err.Error(), "search_query")
	assert.Equal(t, DefaultSettings(), f.o.Settings())

	good := DefaultSettings()
	good.MinYear = 2015
	require.NoError(t, f.o.UpdateSettings(good))
	assert.Equal(t, 2015, f.o.Settings().MinYear)
}

func TestSweepDedup(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Times(2)

	f := newFixture(t, score.NewRuleEvaluator(), n)
	_, err := f.o.FullRun(context.Background())
	require.NoError(t, err)

	res := f.o.SweepDedup(time.Hour)
	assert.Zero(t, res.Removed)
	assert.Equal(t, 3, res.Remaining)

	res = f.o.SweepDedup(-time.Hour)
	assert.Equal(t, 3, res.Removed)
	assert.Zero(t, res.Remaining)
}

func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		location string
		query    string
		want     string
	}{
		{
			name:     "defaults",
			location: "peru",
			query:    "carros autos vehiculos",
			want: "https://www.facebook.com/marketplace/peru/search/" +
				"?query=carros%20autos%20vehiculos&sortBy=creation_time_descend&exact=false",
		},
		{
			name:     "custom base with trailing slash",
			base:     "https://m.example/marketplace/",
			location: "lima",
			query:    "toyota & kia",
			want: "https://m.example/marketplace/lima/search/" +
				"?query=toyota%20%26%20kia&sortBy=creation_time_descend&exact=false",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildSearchURL(tt.base, tt.location, tt.query))
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.MaxPrice = -1
	s.MinYear = 1800
	s.ReferenceProfileURL = "not a url"
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_price")
	assert.Contains(t, err.Error(), "min_year")
	assert.Contains(t, err.Error(), "reference_profile_url")
}
