// Package store persists run history and the activity log. All business
// logic depends on the Store interface, never on concrete implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// DefaultLogRetention is how many activity log entries are kept.
const DefaultLogRetention = 100

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Store defines all run-history operations.
type Store interface {
	// Runs
	RecordRun(ctx context.Context, stats domain.RunStatistics) error
	GetRun(ctx context.Context, id string) (*domain.RunStatistics, error)
	ListRuns(ctx context.Context, q *RunQuery) ([]domain.RunStatistics, int, error)
	Summary(ctx context.Context) (*domain.RunSummary, error)

	// Activity log
	AppendLog(ctx context.Context, entry domain.LogEntry) error
	ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver       string // memory, postgres or sqlite
	DSN          string // postgres connection string
	Path         string // sqlite database file
	LogRetention int
}

// Open returns the backend named by cfg.Driver, migrated and ready.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case "", "memory":
		s = NewMemoryStore(WithLogRetention(cfg.LogRetention))
	case "postgres":
		s, err = NewPostgresStore(ctx, cfg.DSN, WithLogRetention(cfg.LogRetention))
	case "sqlite":
		s, err = NewSQLiteStore(ctx, cfg.Path, WithLogRetention(cfg.LogRetention))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrating %s store: %w", cfg.Driver, err)
	}
	return s, nil
}

type options struct {
	logRetention int
}

// Option configures a Store backend.
type Option func(*options)

// WithLogRetention sets how many activity log entries are kept.
func WithLogRetention(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.logRetention = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logRetention: DefaultLogRetention}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SuccessRate is the percentage of found cars that were sent, rounded.
func SuccessRate(totalCars, sent int) int {
	if totalCars <= 0 {
		return 0
	}
	return int(math.Round(float64(sent) * 100 / float64(totalCars)))
}
