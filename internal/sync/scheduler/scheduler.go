// Package scheduler decides when to run sync passes in the background.
// Passes are triggered on a timer and whenever the client becomes visible
// again, and are skipped when nothing is pending.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	syncpkg "github.com/1prspctv/memory-match-madness/internal/sync"
	"github.com/1prspctv/memory-match-madness/internal/sync/visibility"
)

// Trigger names recorded in logs.
const (
	TriggerTimer      = "timer"
	TriggerVisibility = "visibility"
	TriggerStart      = "start"
	TriggerManual     = "manual"
)

// PendingCounter reports how many scores are waiting to sync.
type PendingCounter interface {
	Count() (int, error)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	SyncInterval  time.Duration // How often the timer trigger fires (default: 60s)
	CountInterval time.Duration // How often the pending count is refreshed (default: 5s)
	SyncOnStart   bool          // Run one pass right after Start
	PassTimeout   time.Duration // Upper bound on a single pass (default: 5 minutes)
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SyncInterval:  60 * time.Second,
		CountInterval: 5 * time.Second,
		SyncOnStart:   true,
		PassTimeout:   5 * time.Minute,
	}
}

// Scheduler manages background sync operations.
type Scheduler struct {
	engine        syncpkg.SyncEngineInterface
	queue         PendingCounter
	visibility    visibility.Source
	syncInterval  time.Duration
	countInterval time.Duration
	syncOnStart   bool
	passTimeout   time.Duration

	mu           sync.RWMutex
	isRunning    bool
	stopCh       chan struct{}
	stop         func()
	unsubscribe  func()
	baseCtx      context.Context
	loops        sync.WaitGroup
	passes       sync.WaitGroup
	inFlight     int
	lastSyncTime time.Time
	pending      int
	pendingKnown bool

	nextListener  int
	countWatchers map[int]func(int)
	syncListeners map[int]func(*syncpkg.SyncResult)
}

// NewScheduler creates a new Scheduler. source may be nil when the host
// has no visibility signal.
func NewScheduler(engine syncpkg.SyncEngineInterface, queue PendingCounter, source visibility.Source, config *SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config == nil {
		config = defaults
	}

	s := &Scheduler{
		engine:        engine,
		queue:         queue,
		visibility:    source,
		syncInterval:  config.SyncInterval,
		countInterval: config.CountInterval,
		syncOnStart:   config.SyncOnStart,
		passTimeout:   config.PassTimeout,
		countWatchers: make(map[int]func(int)),
		syncListeners: make(map[int]func(*syncpkg.SyncResult)),
	}
	if s.syncInterval <= 0 {
		s.syncInterval = defaults.SyncInterval
	}
	if s.countInterval <= 0 {
		s.countInterval = defaults.CountInterval
	}
	if s.passTimeout <= 0 {
		s.passTimeout = defaults.PassTimeout
	}
	return s
}

// Start starts the timer, count refresh and visibility triggers and
// returns the handle that stops them. Calling Start on a running
// scheduler returns the existing handle.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	s.mu.Lock()
	if s.isRunning {
		stop = s.stop
		s.mu.Unlock()
		return stop
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.baseCtx = ctx
	s.stop = s.Stop
	stop = s.stop
	s.mu.Unlock()

	s.loops.Add(2)
	go s.periodicSyncLoop(ctx, s.stopCh)
	go s.countRefreshLoop(ctx, s.stopCh)

	if s.visibility != nil {
		unsubscribe := s.visibility.Subscribe(func(state visibility.State) {
			if state == visibility.Visible {
				s.trigger(TriggerVisibility)
			}
		})
		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	}

	logging.Info("Background sync scheduler started",
		map[string]interface{}{
			"sync_interval":  s.syncInterval.String(),
			"count_interval": s.countInterval.String(),
			"sync_on_start":  s.syncOnStart,
		})

	s.refreshCount()
	if s.syncOnStart {
		s.trigger(TriggerStart)
	}

	return stop
}

// Stop stops every trigger. Timers are released before it returns; a pass
// already running is left to finish. Stop is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	close(s.stopCh)
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	s.loops.Wait()

	logging.Info("Background sync scheduler stopped", nil)
}

// periodicSyncLoop fires the timer trigger.
func (s *Scheduler) periodicSyncLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.trigger(TriggerTimer)
		}
	}
}

// countRefreshLoop keeps the pending count current for display.
func (s *Scheduler) countRefreshLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.countInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.refreshCount()
		}
	}
}

// trigger starts a pass in the background unless the queue is empty.
func (s *Scheduler) trigger(reason string) bool {
	count, err := s.queue.Count()
	if err != nil {
		logging.ErrorWithCode("Failed to read pending count", string(errors.ErrPersistence), err,
			map[string]interface{}{"trigger": reason})
		return false
	}
	if count == 0 {
		logging.Debug("No pending scores, skipping sync", map[string]interface{}{"trigger": reason})
		return false
	}

	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return false
	}
	ctx := s.baseCtx
	s.passes.Add(1)
	s.inFlight++
	s.mu.Unlock()

	logging.Info("Sync triggered",
		map[string]interface{}{"trigger": reason, "pending": count})

	go func() {
		defer s.passes.Done()
		_, _ = s.runPass(ctx, reason)
	}()
	return true
}

// runPass executes one engine pass. Cancelling ctx does not abort a pass
// in progress; only PassTimeout bounds it.
func (s *Scheduler) runPass(ctx context.Context, reason string) (*syncpkg.SyncResult, error) {
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.passTimeout)
	defer cancel()

	result, err := s.engine.SyncPendingScores(passCtx)
	if err != nil {
		logging.ErrorWithCode("Sync pass failed", string(errors.ErrSyncFailed), err,
			map[string]interface{}{"trigger": reason})
		return nil, err
	}

	s.mu.Lock()
	s.lastSyncTime = time.Now()
	s.mu.Unlock()

	logging.Info("Sync pass completed",
		map[string]interface{}{
			"trigger": reason,
			"synced":  result.Synced,
			"failed":  result.Failed,
			"pending": result.Pending,
		})

	s.notifySync(result)
	s.refreshCount()
	return result, nil
}

// TriggerSync starts a pass in the background, subject to the same
// empty-queue check as the automatic triggers. It returns true if a pass
// was started.
func (s *Scheduler) TriggerSync() bool {
	return s.trigger(TriggerManual)
}

// SyncNow runs a pass and waits for it, whether or not the scheduler is
// running.
func (s *Scheduler) SyncNow(ctx context.Context) (*syncpkg.SyncResult, error) {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	return s.runPass(ctx, TriggerManual)
}

// WaitForPasses blocks until every background pass started so far has
// finished.
func (s *Scheduler) WaitForPasses() {
	s.passes.Wait()
}

// refreshCount re-reads the queue length and notifies watchers on change.
func (s *Scheduler) refreshCount() {
	count, err := s.queue.Count()
	if err != nil {
		logging.Error("Failed to refresh pending count", err, nil)
		return
	}

	s.mu.Lock()
	if s.pendingKnown && s.pending == count {
		s.mu.Unlock()
		return
	}
	s.pending = count
	s.pendingKnown = true
	watchers := make([]func(int), 0, len(s.countWatchers))
	for _, w := range s.countWatchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(count)
	}
}

// PendingCount returns the most recently observed pending count.
func (s *Scheduler) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// WatchPendingCount registers fn to receive the pending count whenever it
// changes. fn is called once right away with the current value.
func (s *Scheduler) WatchPendingCount(fn func(int)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.countWatchers[id] = fn
	current := s.pending
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.countWatchers, id)
			s.mu.Unlock()
		})
	}
}

// OnSyncComplete registers fn to receive the result of every completed
// pass.
func (s *Scheduler) OnSyncComplete(fn func(*syncpkg.SyncResult)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.syncListeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.syncListeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Scheduler) notifySync(result *syncpkg.SyncResult) {
	s.mu.RLock()
	listeners := make([]func(*syncpkg.SyncResult), 0, len(s.syncListeners))
	for _, l := range s.syncListeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(result)
	}
}

// SchedulerStatus is a snapshot of the scheduler's state.
type SchedulerStatus struct {
	IsRunning      bool       `json:"is_running"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	PassesInFlight int        `json:"passes_in_flight"`
	PendingItems   int        `json:"pending_items"`
}

// GetStatus returns the current status of the scheduler.
func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		IsRunning:      s.isRunning,
		PassesInFlight: s.inFlight,
		PendingItems:   s.pending,
	}
	if !s.lastSyncTime.IsZero() {
		last := s.lastSyncTime
		status.LastSyncTime = &last
	}
	return status
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
