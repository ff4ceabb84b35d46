// Package pipeline sequences context sampling, extraction, deduplication,
// evaluation and notification into runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
	"github.com/donaldgifford/car-deal-tracker/internal/notify"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	"github.com/donaldgifford/car-deal-tracker/internal/tracing"
	"github.com/donaldgifford/car-deal-tracker/pkg/listing"
	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	"github.com/donaldgifford/car-deal-tracker/pkg/page"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

var (
	// ErrSetup is returned when a run cannot start, e.g. missing credentials.
	ErrSetup = errors.New("pipeline setup failed")
	// ErrExtraction is returned when the search page cannot be loaded or parsed.
	ErrExtraction = errors.New("listing extraction failed")
	// ErrRunInProgress is returned when another run holds the run lock.
	ErrRunInProgress = errors.New("a run is already in progress")
)

const (
	profileScrolls = 1
	searchScrolls  = 3
)

// State is the orchestrator's position in a run.
type State string

// Run states.
const (
	StateIdle         State = "idle"
	StateContextReady State = "context_ready"
	StateExtracting   State = "extracting"
	StateEvaluating   State = "evaluating"
	StateDone         State = "done"
	StateError        State = "error"
)

// Evaluator scores a listing against a market context.
type Evaluator interface {
	Evaluate(ctx context.Context, l domain.Listing, mc domain.MarketContext) (domain.DealAssessment, error)
	CheckCredentials() error
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(ctx context.Context, stats domain.RunStatistics) error
	AppendLog(ctx context.Context, entry domain.LogEntry) error
}

type marginSetter interface {
	SetMinProfitMarginPct(pct float64)
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State         State                 `json:"state"`
	Running       bool                  `json:"running"`
	LastRun       *domain.RunStatistics `json:"last_run,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	MarketContext *domain.MarketContext `json:"market_context,omitempty"`
}

// Orchestrator runs the listing pipeline.
type Orchestrator struct {
	renderer  render.Renderer
	evaluator Evaluator
	notifier  notify.Notifier
	dedup     *dedup.Store
	recorder  Recorder

	patterns       *market.Patterns
	analyzer       *market.Analyzer
	extractor      *listing.Extractor
	selectors      page.Selectors
	marketplaceURL string
	renderTimeout  time.Duration
	testRunLimit   int

	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
	log    *slog.Logger

	runMu sync.Mutex

	mu        sync.RWMutex
	settings  Settings
	state     State
	running   bool
	lastRun   *domain.RunStatistics
	lastErr   error
	marketCtx *domain.MarketContext
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithRecorder sets the run-history recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithSettings sets the initial runtime settings.
func WithSettings(s Settings) Option {
	return func(o *Orchestrator) {
		o.settings = s
	}
}

// WithPatterns builds the analyzer and extractor from p.
func WithPatterns(p market.Patterns) Option {
	return func(o *Orchestrator) {
		o.patterns = &p
	}
}

// WithAnalyzer overrides the context analyzer.
func WithAnalyzer(a *market.Analyzer) Option {
	return func(o *Orchestrator) {
		o.analyzer = a
	}
}

// WithExtractor overrides the listing extractor.
func WithExtractor(e *listing.Extractor) Option {
	return func(o *Orchestrator) {
		o.extractor = e
	}
}

// WithSelectors sets the page selectors.
func WithSelectors(s page.Selectors) Option {
	return func(o *Orchestrator) {
		o.selectors = s
	}
}

// WithMarketplaceURL sets the marketplace base URL searches are built on.
func WithMarketplaceURL(u string) Option {
	return func(o *Orchestrator) {
		o.marketplaceURL = u
	}
}

// WithRenderTimeout sets the per-page load timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.renderTimeout = d
		}
	}
}

// WithTestRunLimit sets the candidate cap used by TestRun when called with
// a non-positive limit.
func WithTestRunLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.testRunLimit = n
		}
	}
}

// WithTracer sets the tracer. Defaults to the global provider's.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = f
	}
}

// WithIDFunc overrides run ID generation.
func WithIDFunc(f func() string) Option {
	return func(o *Orchestrator) {
		o.newID = f
	}
}

// New creates an Orchestrator with injected collaborators.
func New(
	r render.Renderer,
	ev Evaluator,
	n notify.Notifier,
	store *dedup.Store,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		renderer:       r,
		evaluator:      ev,
		notifier:       n,
		dedup:          store,
		selectors:      page.DefaultSelectors(),
		marketplaceURL: DefaultMarketplaceURL,
		renderTimeout:  render.DefaultTimeout,
		testRunLimit:   DefaultTestRunLimit,
		now:            time.Now,
		newID:          uuid.NewString,
		log:            slog.Default(),
		settings:       DefaultSettings(),
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}

	p := market.DefaultPatterns()
	if o.patterns != nil {
		p = *o.patterns
	}
	if o.analyzer == nil {
		o.analyzer = market.NewAnalyzer(p, market.WithAnalyzerNowFunc(o.now))
	}
	if o.extractor == nil {
		o.extractor = listing.NewExtractor(p, listing.WithNowFunc(o.now))
	}
	if o.notifier == nil {
		o.notifier = notify.NewNoOpNotifier(o.log)
	}
	if o.tracer == nil {
		o.tracer = tracing.Tracer()
	}

	return o
}

// FullRun processes up to Settings.MaxItemsPerRun candidates.
func (o *Orchestrator) FullRun(ctx context.Context) (domain.RunStatistics, error) {
	return o.run(ctx, domain.RunModeFull, 0)
}

// TestRun processes at most limit candidates. A non-positive limit uses the
// configured test-run cap.
func (o *Orchestrator) TestRun(ctx context.Context, limit int) (domain.RunStatistics, error) {
	if limit <= 0 {
		limit = o.testRunLimit
	}
	return o.run(ctx, domain.RunModeTest, limit)
}

func (o *Orchestrator) run(ctx context.Context, mode domain.RunMode, limit int) (domain.RunStatistics, error) {
	if !o.runMu.TryLock() {
		metrics.RunsRejectedTotal.Inc()
		return domain.RunStatistics{}, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	start := o.now()
	settings := o.Settings()
	stats := domain.RunStatistics{ID: o.newID(), Mode: mode, RunAt: start}

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", stats.ID),
		attribute.String("run.mode", string(mode)),
	))
	defer span.End()

	log := o.log.With("run_id", stats.ID, "mode", mode)
	log.Info("run starting")

	o.beginRun()

	stats, err := o.execute(ctx, log, settings, limit, stats)
	stats.Duration = o.now().Sub(start)

	metrics.RunDuration.WithLabelValues(string(mode)).Observe(stats.Duration.Seconds())
	o.updateDedupMetrics()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunsTotal.WithLabelValues(string(mode), "error").Inc()
		o.finishRun(StateError, nil, err)
		o.appendLog(ctx, domain.LogError, fmt.Sprintf("%s run failed: %v", mode, err))
		log.Error("run failed", "error", err)
		return stats, err
	}

	metrics.RunsTotal.WithLabelValues(string(mode), "success").Inc()
	metrics.LastRunTimestamp.Set(float64(o.now().Unix()))
	o.finishRun(StateDone, &stats, nil)

	if o.recorder != nil {
		if err := o.recorder.RecordRun(ctx, stats); err != nil {
			log.Error("recording run failed", "error", err)
		}
	}
	o.appendLog(ctx, domain.LogSuccess, fmt.Sprintf(
		"%s run completed: %d cars found, %d processed, %d sent",
		mode, stats.TotalFound, stats.Processed, stats.SentCount,
	))

	span.SetAttributes(
		attribute.Int("run.total_found", stats.TotalFound),
		attribute.Int("run.processed", stats.Processed),
		attribute.Int("run.sent", stats.SentCount),
	)
	log.Info("run complete",
		"total_found", stats.TotalFound,
		"processed", stats.Processed,
		"sent", stats.SentCount,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (o *Orchestrator) execute(
	ctx context.Context,
	log *slog.Logger,
	settings Settings,
	limit int,
	stats domain.RunStatistics,
) (domain.RunStatistics, error) {
	if err := o.evaluator.CheckCredentials(); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if ms, ok := o.evaluator.(marginSetter); ok {
		ms.SetMinProfitMarginPct(settings.MinProfitMarginPct)
	}

	session, err := o.renderer.Open(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: opening browser: %w", ErrExtraction, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("closing browser session", "error", cerr)
		}
	}()

	mc := o.loadContext(ctx, session, settings)
	stats.Context = &mc
	o.setState(StateContextReady)

	o.setState(StateExtracting)
	candidates, err := o.extract(ctx, session, settings, mc)
	if err != nil {
		return stats, err
	}
	stats.TotalFound = len(candidates)
	metrics.CandidatesFoundTotal.Add(float64(len(candidates)))
	log.Info("candidates extracted", "count", len(candidates))

	o.setState(StateEvaluating)

	maxItems := settings.MaxItemsPerRun
	if limit > 0 {
		maxItems = limit
	}
	if len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}

	var priceSum float64
	var priced int
	for _, l := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("run interrupted: %w", err)
		}

		res := o.processCandidate(ctx, log, l, mc)
		switch {
		case res.duplicate:
			stats.Duplicates++
			continue
		case res.err != nil:
			stats.Failed++
			metrics.ListingFailuresTotal.Inc()
			log.Error("processing candidate", "identity", l.Identity, "error", res.err)
		}
		if res.processed {
			stats.Processed++
			if l.NumericPrice != nil {
				priceSum += *l.NumericPrice
				priced++
			}
		}
		if res.sent {
			stats.SentCount++
		}
	}
	if priced > 0 {
		stats.AvgPrice = priceSum / float64(priced)
	}

	return stats, nil
}

type candidateResult struct {
	duplicate bool
	processed bool
	sent      bool
	err       error
}

// processCandidate handles one listing. Panics are recovered into res.err so
// one bad listing never aborts the run.
func (o *Orchestrator) processCandidate(
	ctx context.Context,
	log *slog.Logger,
	l domain.Listing,
	mc domain.MarketContext,
) (res candidateResult) {
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
	}()

	if o.dedup.Has(l.Identity) {
		metrics.DuplicatesSkippedTotal.Inc()
		log.Debug("skipping processed listing", "identity", l.Identity)
		return candidateResult{duplicate: true}
	}

	evalCtx, span := o.tracer.Start(ctx, "pipeline.evaluate",
		trace.WithAttributes(attribute.String("listing.identity", l.Identity)))
	start := time.Now()
	a, err := o.evaluator.Evaluate(evalCtx, l, mc)
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// The assessment is still the usable default verdict.
		span.RecordError(err)
		metrics.EvaluationDegradedTotal.Inc()
		log.Warn("evaluation degraded", "identity", l.Identity, "error", err)
	}
	span.End()
	metrics.ConfidenceDistribution.Observe(a.Confidence)

	o.dedup.Put(l.Identity, domain.ProcessedRecord{Listing: l, Assessment: a})
	metrics.ListingsProcessedTotal.Inc()
	res.processed = true

	if !a.IsGoodDeal {
		return res
	}
	metrics.GoodDealsTotal.Inc()

	alert := &notify.DealAlert{
		Listing:    l,
		Assessment: a,
		Context:    mc,
		DetectedAt: o.now(),
	}
	if err := o.notifier.SendDeal(ctx, alert); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		res.err = fmt.Errorf("sending notification: %w", err)
		return res
	}

	metrics.NotificationsSentTotal.Inc()
	log.Info("deal sent", "identity", l.Identity, "confidence", a.Confidence)
	res.sent = true
	return res
}

func (o *Orchestrator) extract(
	ctx context.Context,
	session render.Session,
	settings Settings,
	mc domain.MarketContext,
) ([]domain.Listing, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	searchURL := BuildSearchURL(o.marketplaceURL, settings.TargetLocation, settings.SearchQuery)
	doc, err := o.renderDocument(ctx, session, searchURL, searchScrolls)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	maxPrice := settings.MaxPrice
	if maxPrice <= 0 {
		maxPrice = mc.PriceRange.Max
	}

	return o.extractor.Extract(doc.Elements(0), listing.Filter{
		MaxPrice:   maxPrice,
		MinYear:    settings.MinYear,
		BrandHints: mc.TopBrands,
	}), nil
}

func (o *Orchestrator) renderDocument(
	ctx context.Context,
	session render.Session,
	target string,
	scrolls int,
) (*page.Document, error) {
	ctx, span := o.tracer.Start(ctx, "render.page", trace.WithAttributes(attribute.String("url", target)))
	defer span.End()

	req := render.DefaultRequest(target, scrolls)
	req.Timeout = o.renderTimeout

	start := time.Now()
	p, err := session.Render(ctx, req)
	metrics.RenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RenderFailuresTotal.Inc()
		span.RecordError(err)
		return nil, err
	}

	doc, err := page.Parse(p.HTML, p.URL, o.selectors)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", target, err)
	}
	return doc, nil
}

// Settings returns a copy of the current runtime settings.
func (o *Orchestrator) Settings() Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// UpdateSettings validates and replaces the runtime settings. A run in
// progress keeps the settings it started with.
func (o *Orchestrator) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()

	o.log.Info("settings updated",
		"max_price", s.MaxPrice,
		"min_year", s.MinYear,
		"max_items_per_run", s.MaxItemsPerRun,
	)
	return nil
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Status returns the current state, last run and market context.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	st := Status{State: o.state, Running: o.running}
	if o.lastRun != nil {
		lr := *o.lastRun
		st.LastRun = &lr
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
	}
	if o.marketCtx != nil {
		mc := o.marketCtx.Clone()
		st.MarketContext = &mc
	}
	return st
}

// Dedup returns the processed-listing store.
func (o *Orchestrator) Dedup() *dedup.Store {
	return o.dedup
}

// SweepDedup removes processed listings older than maxAge.
func (o *Orchestrator) SweepDedup(maxAge time.Duration) dedup.SweepResult {
	res := o.dedup.SweepOlderThan(maxAge)
	metrics.DedupSweptTotal.Add(float64(res.Removed))
	o.updateDedupMetrics()
	return res
}

func (o *Orchestrator) updateDedupMetrics() {
	st := o.dedup.Stats()
	metrics.DedupEntries.Set(float64(st.Count))
	metrics.DedupEvictions.Set(float64(st.Evictions))
}

func (o *Orchestrator) beginRun() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.running = true
}

func (o *Orchestrator) finishRun(s State, stats *domain.RunStatistics, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	o.running = false
	o.lastErr = err
	if stats != nil {
		o.lastRun = stats
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Orchestrator) appendLog(ctx context.Context, t domain.LogType, msg string) {
	if o.recorder == nil {
		return
	}
	entry := domain.LogEntry{Timestamp: o.now(), Message: msg, Type: t}
	if err := o.recorder.AppendLog(ctx, entry); err != nil {
		o.log.Warn("appending activity log", "error", err)
	}
}
