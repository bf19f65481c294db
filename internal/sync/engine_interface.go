// Package sync drains the pending score queue into the remote leaderboard.
package sync

import (
	"context"
	"time"
)

// SyncEngineInterface defines the interface for sync engine operations.
// The scheduler depends on this rather than on *SyncEngine so tests can
// substitute a fake.
type SyncEngineInterface interface {
	// SyncPendingScores runs one sync pass over a snapshot of the queue.
	// Partial failures are reported in the result; an error is returned
	// only when the pass could not run at all.
	SyncPendingScores(ctx context.Context) (*SyncResult, error)

	// LastSync returns the end time of the last completed pass.
	LastSync() *time.Time

	// LastResult returns the summary of the last completed pass.
	LastResult() *SyncResult
}
