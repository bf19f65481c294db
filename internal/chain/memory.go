package chain

import (
	"context"
	"math/big"
	"sync"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/uuid"
)

// MemoryLedger is an in-process PrizeLedger for development and tests.
// Winning a board pays out its whole pool to the payout account.
type MemoryLedger struct {
	mu      sync.Mutex
	account string
	state   models.PrizeState
	paid    *big.Int
	txs     []string
}

// NewMemoryLedger creates an empty ledger whose submissions come from
// account.
func NewMemoryLedger(account string) *MemoryLedger {
	return &MemoryLedger{
		account: account,
		state: models.PrizeState{
			DailyPool:   new(big.Int),
			AllTimePool: new(big.Int),
		},
		paid: new(big.Int),
	}
}

// Fund adds to both pools.
func (l *MemoryLedger) Fund(daily, allTime *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if daily != nil {
		l.state.DailyPool.Add(l.state.DailyPool, daily)
	}
	if allTime != nil {
		l.state.AllTimePool.Add(l.state.AllTimePool, allTime)
	}
}

// ReadState implements PrizeLedger.
func (l *MemoryLedger) ReadState(ctx context.Context) (*models.PrizeState, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrChain, "read prize state", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state
	state.DailyPool = new(big.Int).Set(l.state.DailyPool)
	state.AllTimePool = new(big.Int).Set(l.state.AllTimePool)
	return &state, nil
}

// SubmitScore implements PrizeLedger.
func (l *MemoryLedger) SubmitScore(ctx context.Context, score int64) (string, error) {
	if score < 0 {
		return "", apperrors.New(apperrors.ErrChain, "score must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(apperrors.ErrChain, "submit score", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if score > l.state.DailyHighScore {
		l.state.DailyHighScore = score
		l.state.DailyLeader = l.account
		l.paid.Add(l.paid, l.state.DailyPool)
		l.state.DailyPool = new(big.Int)
	}
	if score > l.state.AllTimeHighScore {
		l.state.AllTimeHighScore = score
		l.state.AllTimeLeader = l.account
		l.paid.Add(l.paid, l.state.AllTimePool)
		l.state.AllTimePool = new(big.Int)
	}

	tx := uuid.NewTxHash()
	l.txs = append(l.txs, tx)

	logging.Info("Score submitted to prize ledger",
		map[string]interface{}{"score": score, "tx_hash": tx})
	return tx, nil
}

// ResetDaily clears the daily high score and leader, as the contract does
// at the start of each day.
func (l *MemoryLedger) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.DailyHighScore = 0
	l.state.DailyLeader = ""
}

// Paid returns the total paid out so far.
func (l *MemoryLedger) Paid() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.paid)
}

// Transactions returns the hashes of every submission, oldest first.
func (l *MemoryLedger) Transactions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.txs...)
}
