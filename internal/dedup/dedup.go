// Package dedup provides the bounded, insertion-ordered store of processed
// listings used to suppress duplicate evaluations and notifications.
package dedup

import (
	"cmp"
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// DefaultCapacity is the store size used when none is configured.
const DefaultCapacity = 1000

var (
	// ErrInvalidRecord is returned when an imported record is malformed.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrCapacityExceeded is returned when an import would not fit.
	ErrCapacityExceeded = errors.New("import exceeds capacity")
)

// Stats describes the store's current occupancy.
type Stats struct {
	Count            int        `json:"count"`
	Capacity         int        `json:"capacity"`
	Evictions        uint64     `json:"evictions"`
	OldestInsertedAt *time.Time `json:"oldest_inserted_at,omitempty"`
	NewestInsertedAt *time.Time `json:"newest_inserted_at,omitempty"`
}

// SweepResult reports the outcome of SweepOlderThan.
type SweepResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// Store is a fixed-capacity map of identity to ProcessedRecord that evicts
// the oldest-inserted entry when full. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	capacity  int
	order     *list.List // of *domain.ProcessedRecord, oldest at Front
	index     map[string]*list.Element
	seq       uint64
	evictions uint64

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Store) {
		s.now = f
	}
}

// New creates a Store holding at most capacity records. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Has reports whether identity has been processed.
func (s *Store) Has(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.index[identity]
	return ok
}

// Put records identity. It stamps StoredAt and InsertionOrder and evicts the
// oldest entry when the store is full. An identity already present is left
// untouched and Put returns false.
func (s *Store) Put(identity string, rec domain.ProcessedRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[identity]; ok {
		return false
	}

	if s.order.Len() >= s.capacity {
		s.evictOldest()
	}

	s.seq++
	rec.Identity = identity
	rec.StoredAt = s.now()
	rec.InsertionOrder = s.seq
	s.index[identity] = s.order.PushBack(&rec)

	return true
}

// Get returns the record for identity.
func (s *Store) Get(identity string) (domain.ProcessedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[identity]
	if !ok {
		return domain.ProcessedRecord{}, false
	}
	return *recordOf(e), true
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats returns occupancy and the oldest/newest storage times.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Count:     s.order.Len(),
		Capacity:  s.capacity,
		Evictions: s.evictions,
	}
	if s.order.Len() == 0 {
		return st
	}

	oldest, newest := recordOf(s.order.Front()).StoredAt, recordOf(s.order.Front()).StoredAt
	for e := s.order.Front(); e != nil; e = e.Next() {
		at := recordOf(e).StoredAt
		if at.Before(oldest) {
			oldest = at
		}
		if at.After(newest) {
			newest = at
		}
	}
	st.OldestInsertedAt = &oldest
	st.NewestInsertedAt = &newest

	return st
}

// SweepOlderThan removes records stored more than maxAge ago.
func (s *Store) SweepOlderThan(maxAge time.Duration) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for e := s.order.Front(); e != nil; {
		next := e.Next()
		if rec := recordOf(e); rec.StoredAt.Before(cutoff) {
			s.order.Remove(e)
			delete(s.index, rec.Identity)
			removed++
		}
		e = next
	}

	if removed > 0 {
		s.logger.Info("swept processed listings",
			"removed", removed,
			"remaining", s.order.Len(),
			"max_age", maxAge,
		)
	}

	return SweepResult{Removed: removed, Remaining: s.order.Len()}
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) []domain.ProcessedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > s.order.Len() {
		n = s.order.Len()
	}
	out := make([]domain.ProcessedRecord, 0, n)
	for e := s.order.Back(); e != nil && len(out) < n; e = e.Prev() {
		out = append(out, *recordOf(e))
	}
	return out
}

// ExportAll returns a copy of every record keyed by identity.
func (s *Store) ExportAll() map[string]domain.ProcessedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.ProcessedRecord, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		rec := recordOf(e)
		out[rec.Identity] = *rec
	}
	return out
}

// ImportAll replaces the store contents with records. Insertion order is
// restored from InsertionOrder (identity breaks ties). On error the current
// contents are left unchanged.
func (s *Store) ImportAll(records map[string]domain.ProcessedRecord) (int, error) {
	if len(records) > s.capacity {
		return 0, fmt.Errorf("%w: %d records, capacity %d", ErrCapacityExceeded, len(records), s.capacity)
	}

	recs := make([]domain.ProcessedRecord, 0, len(records))
	for _, id := range slices.Sorted(maps.Keys(records)) {
		rec := records[id]
		if id == "" {
			return 0, fmt.Errorf("%w: empty identity", ErrInvalidRecord)
		}
		if rec.Identity != "" && rec.Identity != id {
			return 0, fmt.Errorf("%w: key %q holds identity %q", ErrInvalidRecord, id, rec.Identity)
		}
		if rec.StoredAt.IsZero() {
			return 0, fmt.Errorf("%w: %q has no stored_at", ErrInvalidRecord, id)
		}
		rec.Identity = id
		recs = append(recs, rec)
	}

	slices.SortStableFunc(recs, func(a, b domain.ProcessedRecord) int {
		return cmp.Compare(a.InsertionOrder, b.InsertionOrder)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	clear(s.index)
	s.seq = 0
	for i := range recs {
		rec := recs[i]
		s.seq++
		rec.InsertionOrder = s.seq
		s.index[rec.Identity] = s.order.PushBack(&rec)
	}

	s.logger.Info("imported processed listings", "count", len(recs))

	return len(recs), nil
}

// evictOldest drops the front of the order list. Caller holds mu.
func (s *Store) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	rec := recordOf(front)
	s.order.Remove(front)
	delete(s.index, rec.Identity)
	s.evictions++

	s.logger.Debug("evicted oldest processed listing", "identity", rec.Identity)
}

func recordOf(e *list.Element) *domain.ProcessedRecord {
	return e.Value.(*domain.ProcessedRecord) //nolint:forcetypeassert // only records are stored
}
