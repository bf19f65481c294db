// Package scheduler tests for background sync scheduling functionality.
package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1prspctv/memory-match-madness/internal/leaderboard"
	"github.com/1prspctv/memory-match-madness/internal/storage"
	syncpkg "github.com/1prspctv/memory-match-madness/internal/sync"
	"github.com/1prspctv/memory-match-madness/internal/sync/queue"
	"github.com/1prspctv/memory-match-madness/internal/sync/visibility"
)

// =====================================================
// Test Helpers
// =====================================================

// fakeEngine counts passes and can hold them open until released.
type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	started chan struct{}
	ctxErrs []error
}

func (f *fakeEngine) SyncPendingScores(ctx context.Context) (*syncpkg.SyncResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()

	return &syncpkg.SyncResult{Synced: 1, Errors: []string{}}, nil
}

func (f *fakeEngine) LastSync() *time.Time            { return nil }
func (f *fakeEngine) LastResult() *syncpkg.SyncResult { return nil }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestQueue(t *testing.T) *queue.ScoreQueue {
	t.Helper()
	return queue.NewScoreQueue(storage.NewMemoryBackend(), nil)
}

func fastConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SyncInterval:  20 * time.Millisecond,
		CountInterval: 10 * time.Millisecond,
	}
}

// =====================================================
// Configuration Tests
// =====================================================

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, 60*time.Second, config.SyncInterval)
	assert.Equal(t, 5*time.Second, config.CountInterval)
	assert.True(t, config.SyncOnStart)
	assert.Equal(t, 5*time.Minute, config.PassTimeout)
}

func TestNewScheduler_ZeroConfig(t *testing.T) {
	s := NewScheduler(&fakeEngine{}, newTestQueue(t), nil, &SchedulerConfig{})

	assert.Equal(t, 60*time.Second, s.syncInterval)
	assert.Equal(t, 5*time.Second, s.countInterval)
	assert.Equal(t, 5*time.Minute, s.passTimeout)
	assert.False(t, s.syncOnStart)
	assert.False(t, s.IsRunning())
}

// =====================================================
// Timer Trigger Tests
// =====================================================

func TestTimerTrigger_SkipsEmptyQueue(t *testing.T) {
	engine := &fakeEngine{}
	s := NewScheduler(engine, newTestQueue(t), nil, fastConfig())

	stop := s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	stop()
	s.WaitForPasses()

	assert.Zero(t, engine.callCount())
}

func TestTimerTrigger_RunsWhenPending(t *testing.T) {
	engine := &fakeEngine{}
	q := newTestQueue(t)
	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	s := NewScheduler(engine, q, nil, fastConfig())
	stop := s.Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool { return engine.callCount() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSyncOnStart(t *testing.T) {
	engine := &fakeEngine{}
	q := newTestQueue(t)
	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	s := NewScheduler(engine, q, nil, &SchedulerConfig{
		SyncInterval: time.Hour,
		SyncOnStart:  true,
	})
	stop := s.Start(context.Background())
	stop()
	s.WaitForPasses()

	assert.Equal(t, 1, engine.callCount())
}

// =====================================================
// Visibility Trigger Tests
// =====================================================

func TestVisibilityTrigger(t *testing.T) {
	engine := &fakeEngine{}
	q := newTestQueue(t)
	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	source := visibility.NewBroadcaster()
	s := NewScheduler(engine, q, source, &SchedulerConfig{SyncInterval: time.Hour})
	stop := s.Start(context.Background())
	defer stop()

	source.Publish(visibility.Hidden)
	s.WaitForPasses()
	assert.Zero(t, engine.callCount(), "hiding does not trigger")

	source.Publish(visibility.Visible)
	s.WaitForPasses()
	assert.Equal(t, 1, engine.callCount())
}

func TestVisibilityTrigger_SkipsEmptyQueue(t *testing.T) {
	engine := &fakeEngine{}
	source := visibility.NewBroadcaster()
	s := NewScheduler(engine, newTestQueue(t), source, &SchedulerConfig{SyncInterval: time.Hour})
	stop := s.Start(context.Background())
	defer stop()

	source.Publish(visibility.Hidden)
	source.Publish(visibility.Visible)
	s.WaitForPasses()

	assert.Zero(t, engine.callCount())
}

// =====================================================
// Start/Stop Tests
// =====================================================

func TestStart_Twice(t *testing.T) {
	source := visibility.NewBroadcaster()
	s := NewScheduler(&fakeEngine{}, newTestQueue(t), source, fastConfig())

	stop := s.Start(context.Background())
	again := s.Start(context.Background())
	assert.True(t, s.IsRunning())
	assert.Equal(t, 1, source.Listeners())

	again()
	stop()
	assert.False(t, s.IsRunning())
}

func TestStop_ReleasesTriggers(t *testing.T) {
	engine := &fakeEngine{}
	q := newTestQueue(t)
	source := visibility.NewBroadcaster()
	s := NewScheduler(engine, q, source, fastConfig())

	stop := s.Start(context.Background())
	stop()
	stop()

	assert.False(t, s.IsRunning())
	assert.Zero(t, source.Listeners())

	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	source.Publish(visibility.Hidden)
	source.Publish(visibility.Visible)
	assert.False(t, s.TriggerSync())
	time.Sleep(60 * time.Millisecond)
	s.WaitForPasses()

	assert.Zero(t, engine.callCount())
}

func TestStop_LetsInFlightPassFinish(t *testing.T) {
	engine := &fakeEngine{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	q := newTestQueue(t)
	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(engine, q, nil, &SchedulerConfig{SyncInterval: time.Hour})
	stop := s.Start(ctx)

	require.True(t, s.TriggerSync())
	<-engine.started

	stop()
	cancel()
	assert.Equal(t, 1, s.GetStatus().PassesInFlight)

	close(engine.block)
	s.WaitForPasses()

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.ctxErrs, 1)
	assert.NoError(t, engine.ctxErrs[0], "pass context survives stop and cancel")
}

func TestContextCancelStopsLoops(t *testing.T) {
	engine := &fakeEngine{}
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(engine, q, nil, fastConfig())

	stop := s.Start(ctx)
	defer stop()
	cancel()
	time.Sleep(30 * time.Millisecond)

	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	s.WaitForPasses()

	assert.Zero(t, engine.callCount())
}

// =====================================================
// Pending Count Tests
// =====================================================

func TestWatchPendingCount(t *testing.T) {
	q := newTestQueue(t)
	s := NewScheduler(&fakeEngine{}, q, nil, &SchedulerConfig{
		SyncInterval:  time.Hour,
		CountInterval: 10 * time.Millisecond,
	})

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.WatchPendingCount(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})
	defer unsubscribe()

	stop := s.Start(context.Background())
	defer stop()

	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return s.PendingCount() == 1 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, 1, seen[len(seen)-1])
}

// =====================================================
// Manual Sync Tests
// =====================================================

func TestSyncNow(t *testing.T) {
	engine := &fakeEngine{}
	s := NewScheduler(engine, newTestQueue(t), nil, nil)

	var results []*syncpkg.SyncResult
	s.OnSyncComplete(func(r *syncpkg.SyncResult) { results = append(results, r) })

	result, err := s.SyncNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, engine.callCount())
	require.Len(t, results, 1)
	assert.Same(t, result, results[0])

	status := s.GetStatus()
	assert.NotNil(t, status.LastSyncTime)
	assert.Zero(t, status.PassesInFlight)
}

func TestOnSyncComplete_Unsubscribe(t *testing.T) {
	s := NewScheduler(&fakeEngine{}, newTestQueue(t), nil, nil)

	calls := 0
	unsubscribe := s.OnSyncComplete(func(*syncpkg.SyncResult) { calls++ })
	unsubscribe()

	_, err := s.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls)
}

// =====================================================
// Integration Tests
// =====================================================

// A score enqueued while offline reaches the leaderboard once the client
// becomes visible again.
func TestScheduler_DrainsQueueOnVisibility(t *testing.T) {
	q := newTestQueue(t)
	store := leaderboard.NewMemoryStore()
	engine := syncpkg.NewSyncEngine(q, store, &syncpkg.EngineConfig{
		BaseBackoff: time.Millisecond,
	})

	_, err := q.Enqueue("alice", 5000, nil)
	require.NoError(t, err)

	source := visibility.NewBroadcaster()
	s := NewScheduler(engine, q, source, &SchedulerConfig{SyncInterval: time.Hour})

	var mu sync.Mutex
	var last int
	s.WatchPendingCount(func(n int) {
		mu.Lock()
		last = n
		mu.Unlock()
	})

	stop := s.Start(context.Background())
	defer stop()
	assert.Equal(t, 1, s.PendingCount())

	source.Publish(visibility.Hidden)
	source.Publish(visibility.Visible)
	s.WaitForPasses()

	count, err := q.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	mu.Lock()
	assert.Zero(t, last)
	mu.Unlock()

	top, err := store.TopScores(context.Background(), syncpkg.DestinationDaily, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(5000), top[0].Score)
}
