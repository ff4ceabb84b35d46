package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const memoryRunRetention = 1000

// MemoryStore keeps run history in process memory. Summary totals cover
// every recorded run even after old runs are dropped.
type MemoryStore struct {
	mu   sync.RWMutex
	opts options

	runs []domain.RunStatistics // oldest first
	ids  map[string]struct{}
	logs []domain.LogEntry      // newest first

	totalCars  int
	sentCount  int
	executions int
	priceSum   float64
	priced     int
	lastUpdate time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{opts: buildOptions(opts), ids: make(map[string]struct{})}
}

// RecordRun appends stats and folds them into the summary. Re-recording an
// ID is a no-op.
func (s *MemoryStore) RecordRun(_ context.Context, stats domain.RunStatistics) error {
	if stats.ID == "" {
		return fmt.Errorf("recording run: missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[stats.ID]; ok {
		return nil
	}
	s.ids[stats.ID] = struct{}{}

	s.runs = append(s.runs, stats)
	if over := len(s.runs) - memoryRunRetention; over > 0 {
		for _, r := range s.runs[:over] {
			delete(s.ids, r.ID)
		}
		s.runs = slices.Delete(s.runs, 0, over)
	}

	s.totalCars += stats.TotalFound
	s.sentCount += stats.SentCount
	s.executions++
	if stats.AvgPrice > 0 {
		s.priceSum += stats.AvgPrice
		s.priced++
	}
	if stats.RunAt.After(s.lastUpdate) {
		s.lastUpdate = stats.RunAt
	}
	return nil
}

// GetRun returns the run with id.
func (s *MemoryStore) GetRun(_ context.Context, id string) (*domain.RunStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.runs {
		if s.runs[i].ID == id {
			r := s.runs[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
}

// ListRuns returns runs matching q, newest first, and the total match count.
func (s *MemoryStore) ListRuns(_ context.Context, q *RunQuery) ([]domain.RunStatistics, int, error) {
	if q == nil {
		q = &RunQuery{}
	}

	s.mu.RLock()
	matched := make([]domain.RunStatistics, 0, len(s.runs))
	for _, r := range s.runs {
		if q.Mode == nil || r.Mode == *q.Mode {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b domain.RunStatistics) int {
		if c := b.RunAt.Compare(a.RunAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	offset := min(max(q.Offset, 0), total)
	end := min(offset+clampLimit(q.Limit), total)

	return matched[offset:end], total, nil
}

// Summary returns the accumulated totals.
func (s *MemoryStore) Summary(context.Context) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &domain.RunSummary{
		TotalCars:   s.totalCars,
		SentCount:   s.sentCount,
		Executions:  s.executions,
		SuccessRate: SuccessRate(s.totalCars, s.sentCount),
		LastUpdate:  s.lastUpdate,
	}
	if s.priced > 0 {
		sum.AvgPrice = s.priceSum / float64(s.priced)
	}
	return sum, nil
}

// AppendLog prepends entry, dropping the oldest beyond the retention.
func (s *MemoryStore) AppendLog(_ context.Context, entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = slices.Insert(s.logs, 0, entry)
	if len(s.logs) > s.opts.logRetention {
		s.logs = s.logs[:s.opts.logRetention]
	}
	return nil
}

// ListLogs returns up to limit entries, newest first.
func (s *MemoryStore) ListLogs(_ context.Context, limit int) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(clampLimit(limit), len(s.logs))
	return slices.Clone(s.logs[:n]), nil
}

// Migrate is a no-op.
func (*MemoryStore) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (*MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (*MemoryStore) Close() error { return nil }
