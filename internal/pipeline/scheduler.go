package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
)

// Scheduler triggers periodic runs and dedup sweeps.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	maxAge       time.Duration
	snapshotPath string
	log          *slog.Logger

	runEntryID   cron.EntryID
	sweepEntryID cron.EntryID
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithSnapshotPath saves the dedup store to path after every scheduled run
// and sweep.
func WithSnapshotPath(path string) SchedulerOption {
	return func(s *Scheduler) {
		s.snapshotPath = path
	}
}

// NewScheduler creates a Scheduler. A non-positive interval disables the
// corresponding job.
func NewScheduler(
	o *Orchestrator,
	runInterval time.Duration,
	sweepInterval time.Duration,
	maxAge time.Duration,
	log *slog.Logger,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		orchestrator: o,
		maxAge:       maxAge,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if runInterval > 0 {
		if s.runEntryID, err = c.AddFunc("@every "+runInterval.String(), s.runFull); err != nil {
			return nil, err
		}
	}

	if sweepInterval > 0 && maxAge > 0 {
		if s.sweepEntryID, err = c.AddFunc("@every "+sweepInterval.String(), s.runSweep); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// SyncNextRunTimestamps publishes the next fire time of each job.
func (s *Scheduler) SyncNextRunTimestamps() {
	if s.runEntryID != 0 {
		if next := s.cron.Entry(s.runEntryID).Next; !next.IsZero() {
			metrics.SchedulerNextRunTimestamp.Set(float64(next.Unix()))
		}
	}
	if s.sweepEntryID != 0 {
		if next := s.cron.Entry(s.sweepEntryID).Next; !next.IsZero() {
			metrics.SchedulerNextSweepTimestamp.Set(float64(next.Unix()))
		}
	}
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runFull() {
	ctx := context.Background()
	s.log.Info("scheduled run starting")
	_, err := s.orchestrator.FullRun(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.log.Warn("scheduled run skipped, previous run still active")
		return
	case err != nil:
		s.log.Error("scheduled run failed", "error", err)
	}
	s.saveSnapshot()
	s.SyncNextRunTimestamps()
}

func (s *Scheduler) runSweep() {
	res := s.orchestrator.SweepDedup(s.maxAge)
	s.log.Info("scheduled dedup sweep", "removed", res.Removed, "remaining", res.Remaining)
	if res.Removed > 0 {
		s.saveSnapshot()
	}
	s.SyncNextRunTimestamps()
}

func (s *Scheduler) saveSnapshot() {
	if s.snapshotPath == "" {
		return
	}
	if err := s.orchestrator.Dedup().SaveFile(s.snapshotPath); err != nil {
		s.log.Error("saving dedup snapshot", "path", s.snapshotPath, "error", err)
	}
}
