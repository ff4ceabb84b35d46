package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...Option) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, opts: buildOptions(opts)}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// RecordRun inserts stats. Re-recording an ID is a no-op.
func (s *PostgresStore) RecordRun(ctx context.Context, stats domain.RunStatistics) error {
	mc, err := encodeContext(stats.Context)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, queryInsertRunPG,
		stats.ID, string(stats.Mode), stats.TotalFound, stats.Processed, stats.SentCount,
		stats.Duplicates, stats.Failed, stats.AvgPrice, stats.RunAt,
		stats.Duration.Milliseconds(), mc,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.RunStatistics, error) {
	r, err := scanRunPG(s.pool.QueryRow(ctx, queryGetRunPG, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return r, nil
}

// ListRuns queries runs with optional filters, returning results and total count.
func (s *PostgresStore) ListRuns(ctx context.Context, q *RunQuery) ([]domain.RunStatistics, int, error) {
	dataSQL, countSQL, args := q.ToSQL(dollarPlaceholder)

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunStatistics
	for rows.Next() {
		r, err := scanRunPG(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, total, nil
}

// Summary aggregates every recorded run.
func (s *PostgresStore) Summary(ctx context.Context) (*domain.RunSummary, error) {
	var (
		sum  domain.RunSummary
		last *time.Time
	)
	if err := s.pool.QueryRow(ctx, querySummary).Scan(
		&sum.TotalCars, &sum.SentCount, &sum.Executions, &sum.AvgPrice, &last,
	); err != nil {
		return nil, fmt.Errorf("summarizing runs: %w", err)
	}
	if last != nil {
		sum.LastUpdate = *last
	}
	sum.SuccessRate = SuccessRate(sum.TotalCars, sum.SentCount)
	return &sum, nil
}

// AppendLog inserts entry and trims the log to the retention limit.
func (s *PostgresStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, queryInsertLogPG,
			entry.Timestamp, entry.Message, string(entry.Type),
		); err != nil {
			return fmt.Errorf("inserting log entry: %w", err)
		}
		if _, err := tx.Exec(ctx, queryTrimLogPG, s.opts.logRetention); err != nil {
			return fmt.Errorf("trimming log: %w", err)
		}
		return nil
	})
}

// ListLogs returns up to limit entries, newest first.
func (s *PostgresStore) ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	rows, err := s.pool.Query(ctx, queryListLogsPG, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.LogEntry
	for rows.Next() {
		var (
			e   domain.LogEntry
			typ string
		)
		if err := rows.Scan(&e.Timestamp, &e.Message, &typ); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Type = domain.LogType(typ)
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

func scanRunPG(row pgx.Row) (*domain.RunStatistics, error) {
	var (
		r          domain.RunStatistics
		mode       string
		durationMS int64
		mc         []byte
	)
	if err := row.Scan(
		&r.ID, &mode, &r.TotalFound, &r.Processed, &r.SentCount,
		&r.Duplicates, &r.Failed, &r.AvgPrice, &r.RunAt, &durationMS, &mc,
	); err != nil {
		return nil, err
	}
	r.Mode = domain.RunMode(mode)
	r.Duration = time.Duration(durationMS) * time.Millisecond

	ctx, err := decodeContext(mc)
	if err != nil {
		return nil, err
	}
	r.Context = ctx
	return &r, nil
}
