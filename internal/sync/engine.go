package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/sync/queue"
)

// Default leaderboard destinations each score is written to.
const (
	DestinationDaily   = "memory-match-daily"
	DestinationAllTime = "memory-match-alltime"
)

// ScoreWriter is the part of the leaderboard store the engine writes to.
type ScoreWriter interface {
	Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error)
}

// EngineConfig holds sync engine configuration.
type EngineConfig struct {
	Destinations     []string      // Boards every score is written to
	MinRetryInterval time.Duration // Minimum gap between attempts of one record (default: 30s)
	WriteAttempts    int           // Tries per destination per pass (default: 3)
	BaseBackoff      time.Duration // First retry delay, doubled per retry (default: 1s)
	MaxBackoff       time.Duration // Cap on a single retry delay (default: 30s)
	RecordDelay      time.Duration // Pause between records in a pass (default: 500ms)
	Now              func() time.Time
}

// DefaultEngineConfig returns default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Destinations:     []string{DestinationDaily, DestinationAllTime},
		MinRetryInterval: 30 * time.Second,
		WriteAttempts:    3,
		BaseBackoff:      time.Second,
		MaxBackoff:       30 * time.Second,
		RecordDelay:      500 * time.Millisecond,
		Now:              time.Now,
	}
}

// SyncStatus represents the current state of the engine.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// SyncResult summarizes one sync pass.
type SyncResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"` // rate-limited records plus queue length after the pass
	Errors    []string      `json:"errors"`
}

// Success reports whether no attempted record failed.
func (r *SyncResult) Success() bool {
	return r.Failed == 0
}

// SubmitResult is the outcome of an immediate submit.
type SubmitResult struct {
	Record  *models.PendingScore `json:"record"`
	Synced  bool                 `json:"synced"`
	Errors  []string             `json:"errors,omitempty"`
	Pending int                  `json:"pending"`
}

// SyncEngine moves queued scores into the remote leaderboard.
type SyncEngine struct {
	queue  *queue.ScoreQueue
	store  ScoreWriter
	config EngineConfig

	mu         gosync.RWMutex
	active     int
	lastSync   *time.Time
	lastResult *SyncResult
	lastErr    error
}

// NewSyncEngine creates a new SyncEngine. Empty Destinations and zero
// WriteAttempts, MaxBackoff or Now fall back to the defaults; zero delays
// mean no delay.
func NewSyncEngine(q *queue.ScoreQueue, store ScoreWriter, config *EngineConfig) *SyncEngine {
	defaults := DefaultEngineConfig()
	if config == nil {
		config = defaults
	}

	cfg := *config
	if len(cfg.Destinations) == 0 {
		cfg.Destinations = defaults.Destinations
	}
	if cfg.MinRetryInterval < 0 {
		cfg.MinRetryInterval = 0
	}
	if cfg.WriteAttempts <= 0 {
		cfg.WriteAttempts = defaults.WriteAttempts
	}
	if cfg.BaseBackoff < 0 {
		cfg.BaseBackoff = 0
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.RecordDelay < 0 {
		cfg.RecordDelay = 0
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}

	return &SyncEngine{
		queue:  q,
		store:  store,
		config: cfg,
	}
}

// LastSync returns the end time of the last completed pass.
func (e *SyncEngine) LastSync() *time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}

// LastResult returns the summary of the last completed pass.
func (e *SyncEngine) LastResult() *SyncResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastResult
}

// LastError returns the error of the last pass that could not run.
func (e *SyncEngine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Status returns the current sync status.
func (e *SyncEngine) Status() SyncStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.active > 0:
		return SyncStatusSyncing
	case e.lastErr != nil:
		return SyncStatusError
	default:
		return SyncStatusIdle
	}
}

// ShouldRetry reports whether record may be attempted now: it was never
// attempted, or at least MinRetryInterval has passed since the last attempt.
func (e *SyncEngine) ShouldRetry(record *models.PendingScore) bool {
	if record.LastAttemptAt == nil {
		return true
	}
	return e.config.Now().Sub(*record.LastAttemptAt) >= e.config.MinRetryInterval
}

// Submit enqueues a completed game's score and immediately attempts to sync
// it. The only error is a failure to persist locally; a failed remote
// write leaves the record queued for background passes.
func (e *SyncEngine) Submit(ctx context.Context, identity string, score int64, metadata models.Metadata, opts ...queue.EnqueueOption) (*SubmitResult, error) {
	record, err := e.queue.Enqueue(identity, score, metadata, opts...)
	if err != nil {
		return nil, err
	}

	synced, errs := e.syncRecord(ctx, record)

	result := &SubmitResult{
		Record: record,
		Synced: synced,
		Errors: errs,
	}
	if count, err := e.queue.Count(); err == nil {
		result.Pending = count
	} else {
		logging.Error("Failed to count pending scores", err, nil)
	}
	return result, nil
}

// SyncPendingScores processes a snapshot of the queue one record at a time,
// in insertion order.
func (e *SyncEngine) SyncPendingScores(ctx context.Context) (*SyncResult, error) {
	e.mu.Lock()
	e.active++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	result := &SyncResult{
		StartTime: e.config.Now(),
		Errors:    []string{},
	}

	records, err := e.queue.List()
	if err != nil {
		err = apperrors.Wrap(apperrors.ErrSyncFailed, "failed to read pending scores", err)
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return nil, err
	}

	if len(records) > 0 {
		logging.Info("Syncing pending scores", map[string]interface{}{"count": len(records)})
	}

	attempted := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}

		if !e.ShouldRetry(record) {
			logging.Debug("Skipping score, too soon to retry",
				map[string]interface{}{"score_id": record.ID, "attempts": record.AttemptCount})
			result.Pending++
			continue
		}

		if attempted > 0 {
			if err := sleep(ctx, e.config.RecordDelay); err != nil {
				break
			}
		}
		attempted++

		synced, errs := e.syncRecord(ctx, record)
		result.Errors = append(result.Errors, errs...)
		if synced {
			result.Synced++
		} else {
			result.Failed++
		}
	}

	remaining, err := e.queue.Count()
	if err != nil {
		logging.Error("Failed to count pending scores", err, nil)
	}
	result.Pending += remaining

	result.EndTime = e.config.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	end := result.EndTime
	e.lastSync = &end
	e.lastResult = result
	e.lastErr = nil
	e.mu.Unlock()

	if attempted > 0 || result.Pending > 0 {
		logging.Info("Sync complete",
			map[string]interface{}{
				"synced":  result.Synced,
				"failed":  result.Failed,
				"pending": result.Pending,
			})
	}

	return result, nil
}

// syncRecord writes record to every destination and removes it from the
// queue when at least one write succeeded. It never panics; unexpected
// failures are reported like any other.
func (e *SyncEngine) syncRecord(ctx context.Context, record *models.PendingScore) (synced bool, errs []string) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithCode("Unexpected failure syncing score", string(apperrors.ErrInternal),
				fmt.Errorf("%v", r), map[string]interface{}{"score_id": record.ID})
			synced = false
			errs = append(errs, fmt.Sprintf("score %s: unexpected failure: %v", record.ID, r))
		}
	}()

	if err := e.queue.RecordAttempt(record.ID); err != nil {
		logging.Error("Failed to record sync attempt", err,
			map[string]interface{}{"score_id": record.ID})
	}

	var failed []string
	succeeded := 0
	for _, dest := range e.config.Destinations {
		if err := e.writeDestination(ctx, dest, record); err != nil {
			logging.ErrorWithCode("Failed to sync score to destination", string(apperrors.CodeOf(err)), err,
				map[string]interface{}{
					"score_id":    record.ID,
					"destination": dest,
				})
			failed = append(failed, dest)
			errs = append(errs, fmt.Sprintf("score %s: destination %s: %v", record.ID, dest, err))
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return false, errs
	}

	if len(failed) > 0 {
		logging.Warn("Score synced to a subset of destinations",
			map[string]interface{}{
				"score_id":            record.ID,
				"failed_destinations": strings.Join(failed, ","),
			})
	}

	if err := e.queue.Remove(record.ID); err != nil {
		// The remote accepted the score; a stale queue entry only means
		// it will be written again.
		logging.Error("Failed to remove synced score from queue", err,
			map[string]interface{}{"score_id": record.ID})
	}

	logging.Info("Score synced successfully", map[string]interface{}{"score_id": record.ID})
	return true, errs
}

// writeDestination inserts record into one board, retrying with
// exponential backoff. Validation failures are not retried.
func (e *SyncEngine) writeDestination(ctx context.Context, dest string, record *models.PendingScore) error {
	entry := &models.LeaderboardEntry{
		GameID:            dest,
		SubmitterIdentity: record.SubmitterIdentity,
		PlayerName:        record.PlayerName,
		Score:             record.Score,
		Metadata:          record.Metadata,
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     e.config.BaseBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         e.config.MaxBackoff,
	}

	_, err := backoff.Retry(ctx, func() (*models.LeaderboardEntry, error) {
		stored, err := e.store.Insert(ctx, entry)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrValidation) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return stored, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(e.config.WriteAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Debug("Retrying destination write",
				map[string]interface{}{
					"score_id":    record.ID,
					"destination": dest,
					"retry_in":    next.String(),
					"error":       err.Error(),
				})
		}),
	)
	return err
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
