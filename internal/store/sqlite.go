package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// SQLiteStore implements Store on a local SQLite file for single-host
// deployments. Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// SQLite wants a single writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return &SQLiteStore{db: db, opts: buildOptions(opts)}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return runSQLiteMigrations(ctx, s.db)
}

// RecordRun inserts stats. Re-recording an ID is a no-op.
func (s *SQLiteStore) RecordRun(ctx context.Context, stats domain.RunStatistics) error {
	mc, err := encodeContext(stats.Context)
	if err != nil {
		return err
	}

	var mcArg any
	if mc != nil {
		mcArg = string(mc)
	}

	_, err = s.db.ExecContext(ctx, queryInsertRunSQLite,
		stats.ID, string(stats.Mode), stats.TotalFound, stats.Processed, stats.SentCount,
		stats.Duplicates, stats.Failed, stats.AvgPrice, stats.RunAt.UnixMilli(),
		stats.Duration.Milliseconds(), mcArg,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.RunStatistics, error) {
	r, err := scanRunSQLite(s.db.QueryRowContext(ctx, queryGetRunSQLite, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return r, nil
}

// ListRuns queries runs with optional filters, returning results and total count.
func (s *SQLiteStore) ListRuns(ctx context.Context, q *RunQuery) ([]domain.RunStatistics, int, error) {
	dataSQL, countSQL, args := q.ToSQL(questionPlaceholder)

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunStatistics
	for rows.Next() {
		r, err := scanRunSQLite(rows)
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
func (s *SQLiteStore) Summary(ctx context.Context) (*domain.RunSummary, error) {
	var (
		sum  domain.RunSummary
		last sql.NullInt64
	)
	if err := s.db.QueryRowContext(ctx, querySummary).Scan(
		&sum.TotalCars, &sum.SentCount, &sum.Executions, &sum.AvgPrice, &last,
	); err != nil {
		return nil, fmt.Errorf("summarizing runs: %w", err)
	}
	if last.Valid {
		sum.LastUpdate = time.UnixMilli(last.Int64).UTC()
	}
	sum.SuccessRate = SuccessRate(sum.TotalCars, sum.SentCount)
	return &sum, nil
}

// AppendLog inserts entry and trims the log to the retention limit.
func (s *SQLiteStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning log append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, queryInsertLogSQLite,
		entry.Timestamp.UnixMilli(), entry.Message, string(entry.Type),
	); err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryTrimLogSQLite, s.opts.logRetention); err != nil {
		return fmt.Errorf("trimming log: %w", err)
	}
	return tx.Commit()
}

// ListLogs returns up to limit entries, newest first.
func (s *SQLiteStore) ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryListLogsSQLite, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.LogEntry
	for rows.Next() {
		var (
			e   domain.LogEntry
			at  int64
			typ string
		)
		if err := rows.Scan(&at, &e.Message, &typ); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Timestamp = time.UnixMilli(at).UTC()
		e.Type = domain.LogType(typ)
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunSQLite(row scanner) (*domain.RunStatistics, error) {
	var (
		r          domain.RunStatistics
		mode       string
		runAt      int64
		durationMS int64
		mc         sql.NullString
	)
	if err := row.Scan(
		&r.ID, &mode, &r.TotalFound, &r.Processed, &r.SentCount,
		&r.Duplicates, &r.Failed, &r.AvgPrice, &runAt, &durationMS, &mc,
	); err != nil {
		return nil, err
	}
	r.Mode = domain.RunMode(mode)
	r.RunAt = time.UnixMilli(runAt).UTC()
	r.Duration = time.Duration(durationMS) * time.Millisecond

	if mc.Valid {
		ctx, err := decodeContext([]byte(mc.String))
		if err != nil {
			return nil, err
		}
		r.Context = ctx
	}
	return &r, nil
}
