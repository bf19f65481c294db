// Package chain defines the prize pool ledger the payout job settles
// against.
package chain

import (
	"context"

	"github.com/1prspctv/memory-match-madness/internal/models"
)

// PrizeLedger is the on-chain prize pool contract.
type PrizeLedger interface {
	// ReadState returns the current pools, high scores and leaders.
	ReadState(ctx context.Context) (*models.PrizeState, error)

	// SubmitScore submits score from the payout account and returns the
	// transaction hash. A score that beats a board's high score wins that
	// board's pool.
	SubmitScore(ctx context.Context, score int64) (txHash string, err error)
}
