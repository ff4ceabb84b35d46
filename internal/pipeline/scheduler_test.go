package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
	notifyMocks "github.com/donaldgifford/car-deal-tracker/internal/notify/mocks"
	score "github.com/donaldgifford/car-deal-tracker/pkg/scorer"
)

func TestNewScheduler_RegistersCronEntries(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	sched, err := NewScheduler(f.o, 15*time.Minute, 6*time.Hour, 7*24*time.Hour, quietLogger())
	require.NoError(t, err)

	assert.Len(t, sched.Entries(), 2)
	assert.NotZero(t, sched.runEntryID)
	assert.NotZero(t, sched.sweepEntryID)
	assert.NotEqual(t, sched.runEntryID, sched.sweepEntryID)
}

func TestNewScheduler_DisabledJobs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	sched, err := NewScheduler(f.o, 0, time.Hour, 0, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, sched.Entries())
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	sched, err := NewScheduler(f.o, time.Hour, 24*time.Hour, time.Hour, quietLogger())
	require.NoError(t, err)

	sched.Start()
	ctx := sched.Stop()
	<-ctx.Done()
}

func TestScheduler_SyncNextRunTimestamps(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))

	sched, err := NewScheduler(f.o, 15*time.Minute, 6*time.Hour, time.Hour, quietLogger())
	require.NoError(t, err)

	// Start so that cron populates Next times.
	sched.Start()
	defer sched.Stop()

	sched.SyncNextRunTimestamps()

	assert.Greater(t, ptestutil.ToFloat64(metrics.SchedulerNextRunTimestamp), float64(0))
	assert.Greater(t, ptestutil.ToFloat64(metrics.SchedulerNextSweepTimestamp), float64(0))
}

func TestScheduler_RunFullSavesSnapshot(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Times(2)

	f := newFixture(t, score.NewRuleEvaluator(), n)
	path := filepath.Join(t.TempDir(), "dedup.json")

	sched, err := NewScheduler(f.o, time.Hour, time.Hour, time.Hour, quietLogger(), WithSnapshotPath(path))
	require.NoError(t, err)

	sched.runFull()

	restored := dedup.New(100)
	count, err := restored.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestScheduler_RunFullSkipsWhenBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, score.NewRuleEvaluator(), notifyMocks.NewMockNotifier(t))
	path := filepath.Join(t.TempDir(), "dedup.json")

	sched, err := NewScheduler(f.o, time.Hour, time.Hour, time.Hour, quietLogger(), WithSnapshotPath(path))
	require.NoError(t, err)

	f.o.runMu.Lock()
	sched.runFull()
	f.o.runMu.Unlock()

	assert.NoFileExists(t, path)
}

func TestScheduler_RunSweep(t *testing.T) {
	t.Parallel()

	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().SendDeal(mock.Anything, mock.Anything).Return(nil).Times(2)

	f := newFixture(t, score.NewRuleEvaluator(), n)
	_, err := f.o.FullRun(context.Background())
	require.NoError(t, err)

	// A negative age puts the cutoff after every record.
	sched, err := NewScheduler(f.o, time.Hour, time.Hour, -time.Minute, quietLogger())
	require.NoError(t, err)

	sched.runSweep()
	assert.Zero(t, f.store.Len())
}
