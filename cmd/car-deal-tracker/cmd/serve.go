package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/car-deal-tracker/api/openapi"
	"github.com/donaldgifford/car-deal-tracker/internal/api/handlers"
	"github.com/donaldgifford/car-deal-tracker/internal/api/middleware"
	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	"github.com/donaldgifford/car-deal-tracker/internal/tracing"
	"github.com/donaldgifford/car-deal-tracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and scheduler",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sched, err := pipeline.NewScheduler(
		a.orchestrator,
		cfg.Schedule.RunInterval,
		cfg.Schedule.SweepInterval,
		cfg.Dedup.MaxAge,
		logger.Component(a.log, "scheduler"),
		pipeline.WithSnapshotPath(cfg.Dedup.SnapshotPath),
	)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	e := newServer(a)
	addr := cfg.Server.Addr()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		sched.SyncNextRunTimestamps()

		<-gctx.Done()
		a.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		// Let an in-flight run finish so its results are recorded.
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			a.log.Warn("scheduler did not stop before shutdown timeout")
		}

		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	a.saveSnapshot()
	a.log.Info("server stopped")
	return err
}

// newServer builds the Echo instance with middleware, probes, metrics and
// the admin API.
func newServer(a *app) *echo.Echo {
	cfg := a.cfg
	apiLog := logger.Component(a.log, "api")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(
		middleware.Recovery(apiLog),
		middleware.Tracing(tracing.Tracer()),
		middleware.RequestLog(apiLog),
		middleware.Metrics(),
	)

	health := handlers.NewHealthHandler(a.store, a.orchestrator)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	openapi.RegisterRoutes(e)

	registerAPI(newAPI(e), apiDeps{
		orchestrator: a.orchestrator,
		history:      a.store,
		maxAge:       cfg.Dedup.MaxAge,
		snapshotPath: cfg.Dedup.SnapshotPath,
		log:          apiLog,
	})

	return e
}

// apiDeps are the collaborators behind the admin API.
type apiDeps struct {
	orchestrator *pipeline.Orchestrator
	history      handlers.HistoryProvider
	maxAge       time.Duration
	snapshotPath string
	log          *slog.Logger
}

func newAPI(e *echo.Echo) huma.API {
	return humaecho.New(e, huma.DefaultConfig("Car Deal Tracker API", Version))
}

func registerAPI(api huma.API, d apiDeps) {
	handlers.RegisterPipelineRoutes(api, handlers.NewPipelineHandler(d.orchestrator, d.log))
	handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(d.history))
	handlers.RegisterDedupRoutes(api, handlers.NewDedupHandler(
		d.orchestrator.Dedup(),
		d.orchestrator,
		d.maxAge,
		handlers.WithSnapshotPath(d.snapshotPath),
		handlers.WithDedupLogger(d.log),
	))
}
