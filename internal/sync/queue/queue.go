// Package queue provides the durable local queue of scores that the remote
// leaderboard has not yet confirmed.
//
// Every mutation is a read-modify-write of the whole serialized collection
// under one mutex, so interleaved calls never lose updates. No operation
// touches the network.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/storage"
	"github.com/1prspctv/memory-match-madness/internal/uuid"
)

const (
	// DefaultKey is the storage key holding the serialized queue.
	DefaultKey = "mmm_score_queue"

	// DefaultMaxSize bounds the queue; the oldest record is evicted first.
	DefaultMaxSize = 100

	// DefaultMaxAge is the age past which records are dropped on read.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Config holds queue configuration.
type Config struct {
	Key     string
	MaxSize int
	MaxAge  time.Duration
	Now     func() time.Time
}

// DefaultConfig returns default queue configuration.
func DefaultConfig() *Config {
	return &Config{
		Key:     DefaultKey,
		MaxSize: DefaultMaxSize,
		MaxAge:  DefaultMaxAge,
		Now:     time.Now,
	}
}

// ScoreQueue is the persistent pending score queue.
type ScoreQueue struct {
	backend storage.Backend
	key     string
	maxSize int
	maxAge  time.Duration
	now     func() time.Time
	mu      sync.Mutex
}

// EnqueueOption customizes a new record.
type EnqueueOption func(*models.PendingScore)

// WithPlayerName attaches a display name distinct from the identity
// (e.g. when the identity is a wallet address).
func WithPlayerName(name string) EnqueueOption {
	return func(p *models.PendingScore) {
		p.PlayerName = strings.TrimSpace(name)
	}
}

// NewScoreQueue creates a queue over backend. Zero config fields fall back
// to the defaults.
func NewScoreQueue(backend storage.Backend, config *Config) *ScoreQueue {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}

	q := &ScoreQueue{
		backend: backend,
		key:     config.Key,
		maxSize: config.MaxSize,
		maxAge:  config.MaxAge,
		now:     config.Now,
	}
	if q.key == "" {
		q.key = defaults.Key
	}
	if q.maxSize <= 0 {
		q.maxSize = defaults.MaxSize
	}
	if q.maxAge <= 0 {
		q.maxAge = defaults.MaxAge
	}
	if q.now == nil {
		q.now = defaults.Now
	}
	return q
}

// Enqueue records a completed game's score. Once it returns without error
// the score is durable. When the queue is at capacity the oldest record is
// evicted first. It fails with PERSISTENCE_FAILURE when storage is
// unavailable or corrupted and with VALIDATION_ERROR for bad input.
func (q *ScoreQueue) Enqueue(identity string, score int64, metadata models.Metadata, opts ...EnqueueOption) (*models.PendingScore, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "submitter identity is required")
	}
	if score < 0 {
		return nil, apperrors.New(apperrors.ErrValidation, fmt.Sprintf("score must be non-negative, got %d", score))
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	record := &models.PendingScore{
		ID:                uuid.NewPendingScoreID(identity, now),
		SubmitterIdentity: identity,
		Score:             score,
		Metadata:          metadata.Clone(),
		EnqueuedAt:        now,
		AttemptCount:      0,
	}
	for _, opt := range opts {
		opt(record)
	}

	records, err := q.loadFresh()
	if err != nil {
		return nil, err
	}

	for len(records) >= q.maxSize {
		evicted := records[0]
		records = records[1:]
		logging.Warn("Score queue at max capacity, evicting oldest entry",
			map[string]interface{}{
				"evicted_id": evicted.ID,
				"max_size":   q.maxSize,
			})
	}

	records = append(records, record)
	if err := q.save(records); err != nil {
		return nil, err
	}

	logging.Info("Score saved to local queue",
		map[string]interface{}{
			"score_id": record.ID,
			"score":    record.Score,
			"pending":  len(records),
		})

	return record.Clone(), nil
}

// List returns all records in insertion order. Records older than the max
// age are dropped and the pruned collection is persisted immediately.
func (q *ScoreQueue) List() ([]*models.PendingScore, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.loadFresh()
	if err != nil {
		return nil, err
	}
	return cloneAll(records), nil
}

// Get returns a single record.
func (q *ScoreQueue) Get(id string) (*models.PendingScore, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.loadFresh()
	if err != nil {
		return nil, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r.Clone(), true, nil
		}
	}
	return nil, false, nil
}

// Remove deletes a record. Removing an absent id is a no-op.
func (q *ScoreQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load()
	if err != nil {
		return err
	}

	filtered := records[:0]
	for _, r := range records {
		if r.ID != id {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(records) {
		return nil
	}
	if err := q.save(filtered); err != nil {
		return err
	}

	logging.Info("Removed synced score from queue",
		map[string]interface{}{"score_id": id, "pending": len(filtered)})
	return nil
}

// RecordAttempt increments a record's attempt count and stamps the attempt
// time. Unknown ids are ignored.
func (q *ScoreQueue) RecordAttempt(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load()
	if err != nil {
		return err
	}

	for _, r := range records {
		if r.ID != id {
			continue
		}
		now := q.now()
		r.AttemptCount++
		r.LastAttemptAt = &now
		return q.save(records)
	}
	return nil
}

// Count returns the number of live records.
func (q *ScoreQueue) Count() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.loadFresh()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Clear wipes every record. Only manual tooling calls this.
func (q *ScoreQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.backend.Delete(q.key); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "failed to clear score queue", err)
	}

	logging.Warn("Cleared all pending scores", nil)
	return nil
}

// load reads the stored collection. Callers hold q.mu.
func (q *ScoreQueue) load() ([]*models.PendingScore, error) {
	raw, ok, err := q.backend.Get(q.key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "failed to read score queue", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var records []*models.PendingScore
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "score queue is corrupted", err)
	}
	return records, nil
}

// loadFresh reads the collection and drops records older than maxAge,
// persisting the pruned collection when anything was dropped.
func (q *ScoreQueue) loadFresh() ([]*models.PendingScore, error) {
	records, err := q.load()
	if err != nil {
		return nil, err
	}

	cutoff := q.now().Add(-q.maxAge)
	fresh := make([]*models.PendingScore, 0, len(records))
	for _, r := range records {
		if r.EnqueuedAt.After(cutoff) {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) != len(records) {
		if err := q.save(fresh); err != nil {
			return nil, err
		}
		logging.Warn("Evicted expired scores from queue",
			map[string]interface{}{
				"expired": len(records) - len(fresh),
				"max_age": q.maxAge.String(),
			})
	}
	return fresh, nil
}

// save writes the whole collection. Callers hold q.mu.
func (q *ScoreQueue) save(records []*models.PendingScore) error {
	if records == nil {
		records = []*models.PendingScore{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "failed to encode score queue", err)
	}
	if err := q.backend.Set(q.key, data); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "failed to write score queue", err)
	}
	return nil
}

func cloneAll(records []*models.PendingScore) []*models.PendingScore {
	out := make([]*models.PendingScore, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
