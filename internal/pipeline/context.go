package pipeline

import (
	"context"
	"fmt"

	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// loadContext samples the reference profile. It never fails: any render or
// parse error yields the default context.
func (o *Orchestrator) loadContext(
	ctx context.Context,
	session render.Session,
	settings Settings,
) domain.MarketContext {
	ctx, span := o.tracer.Start(ctx, "pipeline.context")
	defer span.End()

	var mc domain.MarketContext
	doc, err := o.renderDocument(ctx, session, settings.ReferenceProfileURL, profileScrolls)
	if err != nil {
		span.RecordError(err)
		o.log.Warn("reference profile unavailable, using default context", "error", err)
		mc = market.DefaultContext()
		mc.ComputedAt = o.now()
	} else {
		mc = o.analyzer.Analyze(doc.Elements(0))
	}

	if mc.Fallback {
		metrics.ContextFallbackTotal.Inc()
	}
	metrics.ContextAveragePrice.Set(mc.AveragePrice)

	o.log.Info("market context ready",
		"average_price", mc.AveragePrice,
		"segment", mc.Segment,
		"sampled", mc.TotalListingsSampled,
		"fallback", mc.Fallback,
	)

	o.mu.Lock()
	cached := mc.Clone()
	o.marketCtx = &cached
	o.mu.Unlock()

	return mc
}

// RefreshContext re-samples the reference profile outside a run and caches
// the result. Sampling failures produce the default context rather than an
// error; only a busy orchestrator or an unavailable browser fail.
func (o *Orchestrator) RefreshContext(ctx context.Context) (domain.MarketContext, error) {
	if !o.runMu.TryLock() {
		return domain.MarketContext{}, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	session, err := o.renderer.Open(ctx)
	if err != nil {
		return domain.MarketContext{}, fmt.Errorf("opening browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			o.log.Warn("closing browser session", "error", cerr)
		}
	}()

	mc := o.loadContext(ctx, session, o.Settings())
	o.appendLog(ctx, domain.LogInfo, fmt.Sprintf(
		"market context refreshed: average S/ %.0f, segment %s", mc.AveragePrice, mc.Segment,
	))
	return mc, nil
}

// MarketContext returns the most recently computed context, or false when
// none has been computed yet.
func (o *Orchestrator) MarketContext() (domain.MarketContext, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.marketCtx == nil {
		return domain.MarketContext{}, false
	}
	return o.marketCtx.Clone(), true
}
