package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// errLocked is returned when another local run holds the lock.
var errLocked = errors.New("another local run is in progress")

func runCmd() *cobra.Command {
	var html string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline once in this process",
		Long: "Runs one full pipeline pass without starting the server. The dedup\n" +
			"snapshot is loaded before and saved after the run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLocal(cmd.Context(), html, func(ctx context.Context, o *pipeline.Orchestrator) (domain.RunStatistics, error) {
				return o.FullRun(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&html, "html", "", "serve every page from this saved HTML file instead of a browser")
	return cmd
}

func testRunCmd() *cobra.Command {
	var (
		html  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "test-run",
		Short: "Run the pipeline on a few candidates in this process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLocal(cmd.Context(), html, func(ctx context.Context, o *pipeline.Orchestrator) (domain.RunStatistics, error) {
				return o.TestRun(ctx, limit)
			})
		},
	}
	cmd.Flags().StringVar(&html, "html", "", "serve every page from this saved HTML file instead of a browser")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum candidates to evaluate (0 uses the configured default)")
	return cmd
}

func contextCmd() *cobra.Command {
	var html string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Sample the reference profile and print the market context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, unlock, err := openLocal(cmd.Context(), html)
			if err != nil {
				return err
			}
			defer unlock()
			defer a.close(cmd.Context())

			mc, err := a.orchestrator.RefreshContext(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(mc)
			}
			return printMarketContext(&mc)
		},
	}
	cmd.Flags().StringVar(&html, "html", "", "read the reference profile from this saved HTML file")
	return cmd
}

func runLocal(
	ctx context.Context,
	html string,
	run func(context.Context, *pipeline.Orchestrator) (domain.RunStatistics, error),
) error {
	a, unlock, err := openLocal(ctx, html)
	if err != nil {
		return err
	}
	defer unlock()
	defer a.close(ctx)

	stats, err := run(ctx, a.orchestrator)
	a.saveSnapshot()
	if err != nil {
		return err
	}

	if jsonOutput() {
		return outputJSON(stats)
	}
	return printRunDetail(&stats)
}

// openLocal takes the run lock and wires an app. With html set pages come
// from that file instead of a browser.
func openLocal(ctx context.Context, html string) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	lock, err := acquireRunLock(cfg.Dedup.SnapshotPath)
	if err != nil {
		return nil, nil, err
	}
	unlock := func() { _ = lock.Unlock() }

	var r render.Renderer
	if html != "" {
		sr, err := render.NewFileRenderer(html)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		r = sr
	}

	a, err := newApp(ctx, cfg, r)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return a, unlock, nil
}

// acquireRunLock guards the dedup snapshot against concurrent local runs.
func acquireRunLock(snapshotPath string) (*flock.Flock, error) {
	path := filepath.Join(os.TempDir(), "car-deal-tracker.lock")
	if snapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating snapshot dir: %w", err)
		}
		path = snapshotPath + ".lock"
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", errLocked, path)
	}
	return lock, nil
}
