package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/donaldgifford/car-deal-tracker/internal/config"
	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/notify"
	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	"github.com/donaldgifford/car-deal-tracker/internal/secrets"
	"github.com/donaldgifford/car-deal-tracker/internal/store"
	"github.com/donaldgifford/car-deal-tracker/internal/tracing"
	"github.com/donaldgifford/car-deal-tracker/pkg/evaluate"
	"github.com/donaldgifford/car-deal-tracker/pkg/listing"
	"github.com/donaldgifford/car-deal-tracker/pkg/llm"
	"github.com/donaldgifford/car-deal-tracker/pkg/logger"
	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	score "github.com/donaldgifford/car-deal-tracker/pkg/scorer"
)

// app holds the wired collaborators shared by serve and the local commands.
type app struct {
	cfg          *config.Config
	log          *slog.Logger
	store        store.Store
	orchestrator *pipeline.Orchestrator

	shutdownTracing tracing.ShutdownFunc
}

// newApp wires every component from cfg. A nil renderer launches Chrome.
func newApp(ctx context.Context, cfg *config.Config, r render.Renderer) (*app, error) {
	log := logger.NewWithOptions(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, logger.Options{
		Attrs: []slog.Attr{
			slog.String("service", cfg.Tracing.ServiceName),
			slog.String("version", Version),
		},
	})
	slog.SetDefault(log)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	a := &app{cfg: cfg, log: log, shutdownTracing: shutdownTracing}

	a.store, err = store.Open(ctx, cfg.Database.StoreConfig())
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("opening store: %w", err)
	}
	log.Info("store ready", "driver", cfg.Database.Driver)

	if err := a.buildOrchestrator(r); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) buildOrchestrator(r render.Renderer) error {
	cfg := a.cfg

	patterns, err := cfg.Patterns()
	if err != nil {
		return fmt.Errorf("compiling extraction patterns: %w", err)
	}

	ev, err := newEvaluator(cfg, a.log)
	if err != nil {
		return fmt.Errorf("creating evaluator: %w", err)
	}

	n, err := newNotifier(cfg, a.log)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	dd := dedup.New(cfg.Dedup.Capacity, dedup.WithLogger(logger.Component(a.log, "dedup")))
	if path := cfg.Dedup.SnapshotPath; path != "" {
		count, err := dd.LoadFile(path)
		if err != nil {
			a.log.Warn("dedup snapshot not loaded, starting empty", "path", path, "error", err)
		} else {
			a.log.Info("dedup snapshot loaded", "path", path, "records", count)
		}
	}

	if r == nil {
		r = render.NewChromeRenderer(
			render.WithExecPath(cfg.Render.ChromeBin),
			render.WithHeadless(!cfg.Render.ShowBrowser),
			render.WithLogger(logger.Component(a.log, "render")),
		)
	}

	a.orchestrator = pipeline.New(r, ev, n, dd,
		pipeline.WithLogger(logger.Component(a.log, "pipeline")),
		pipeline.WithRecorder(a.store),
		pipeline.WithSettings(cfg.Settings()),
		pipeline.WithAnalyzer(market.NewAnalyzer(patterns, market.WithSampleSize(cfg.Extraction.SampleSize))),
		pipeline.WithExtractor(listing.NewExtractor(patterns, listing.WithScanLimit(cfg.Extraction.ScanLimit))),
		pipeline.WithSelectors(cfg.Selectors()),
		pipeline.WithMarketplaceURL(cfg.Marketplace.BaseURL),
		pipeline.WithRenderTimeout(cfg.Render.Timeout),
		pipeline.WithTestRunLimit(cfg.Filters.TestRunLimit),
		pipeline.WithTracer(tracing.Tracer()),
	)
	return nil
}

// saveSnapshot persists the dedup store when a snapshot path is configured.
func (a *app) saveSnapshot() {
	path := a.cfg.Dedup.SnapshotPath
	if path == "" || a.orchestrator == nil {
		return
	}
	if err := a.orchestrator.Dedup().SaveFile(path); err != nil {
		a.log.Error("saving dedup snapshot", "path", path, "error", err)
	}
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store", "error", err)
		}
	}
	if err := a.shutdownTracing(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn("flushing traces", "error", err)
	}
}

// newEvaluator returns the rule evaluator or an LLM-backed one.
func newEvaluator(cfg *config.Config, log *slog.Logger) (pipeline.Evaluator, error) {
	sc := cfg.Scoring
	if sc.Provider == "rules" {
		return score.NewRuleEvaluator(), nil
	}

	backend, err := llm.New(llm.Config{
		Provider: sc.Provider,
		Endpoint: sc.Endpoint,
		Model:    sc.Model,
		APIKey:   apiKey(sc.Provider),
		Timeout:  sc.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return evaluate.NewLLMEvaluator(backend,
		evaluate.WithLogger(logger.Component(log, "evaluate")),
		evaluate.WithRateLimit(sc.RateLimit.PerSecond, sc.RateLimit.Burst),
		evaluate.WithMinProfitMarginPct(cfg.Filters.MinProfitMarginPct),
		evaluate.WithTemperature(sc.Temperature),
		evaluate.WithMaxTokens(sc.MaxTokens),
	), nil
}

func apiKey(provider string) string {
	switch provider {
	case "", "openai":
		return secrets.Lookup(secrets.OpenAIAPIKey)
	case "anthropic":
		return secrets.Lookup(secrets.AnthropicAPIKey)
	default:
		return ""
	}
}

// newNotifier builds the configured notifiers. Targets without credentials
// are skipped with a warning; with no target left alerts are only logged.
func newNotifier(cfg *config.Config, log *slog.Logger) (notify.Notifier, error) {
	nc := cfg.Notifications
	loc, err := notify.LoadLocation(nc.Timezone)
	if err != nil {
		return nil, err
	}

	var targets notify.Multi
	if nc.Telegram.Enabled {
		token := nc.Telegram.BotToken
		if token == "" {
			token = secrets.Lookup(secrets.TelegramBotToken)
		}
		if token == "" || nc.Telegram.ChatID == "" {
			log.Warn("telegram enabled without bot token or chat id, skipping")
		} else {
			opts := []notify.TelegramOption{notify.WithTelegramLocation(loc)}
			if nc.Telegram.APIURL != "" {
				opts = append(opts, notify.WithTelegramEndpoint(strings.TrimRight(nc.Telegram.APIURL, "/")))
			}
			targets = append(targets, notify.NewTelegramNotifier(token, nc.Telegram.ChatID, opts...))
		}
	}
	if nc.Discord.Enabled {
		if nc.Discord.WebhookURL == "" {
			log.Warn("discord enabled without webhook url, skipping")
		} else {
			targets = append(targets, notify.NewDiscordNotifier(nc.Discord.WebhookURL,
				notify.WithDiscordLocation(loc)))
		}
	}

	switch len(targets) {
	case 0:
		return notify.NewNoOpNotifier(logger.Component(log, "notify")), nil
	case 1:
		return targets[0], nil
	default:
		return targets, nil
	}
}
