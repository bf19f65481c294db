package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
)

const payoutAccount = "0x00000000000000000000000000000000000000aa"

func TestMemoryLedger_ReadStateEmpty(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)

	state, err := l.ReadState(context.Background())
	require.NoError(t, err)
	assert.Zero(t, state.DailyPool.Sign())
	assert.Zero(t, state.AllTimePool.Sign())
	assert.Zero(t, state.DailyHighScore)
	assert.Empty(t, state.DailyLeader)
}

func TestMemoryLedger_SubmitWinningScore(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)
	l.Fund(big.NewInt(5_000_000), big.NewInt(20_000_000))

	tx, err := l.SubmitScore(context.Background(), 5000)
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, tx)

	state, err := l.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), state.DailyHighScore)
	assert.Equal(t, int64(5000), state.AllTimeHighScore)
	assert.Equal(t, payoutAccount, state.DailyLeader)
	assert.Zero(t, state.DailyPool.Sign())
	assert.Zero(t, state.AllTimePool.Sign())
	assert.Equal(t, "25000000", l.Paid().String())
	assert.Equal(t, []string{tx}, l.Transactions())
}

func TestMemoryLedger_LosingScorePaysNothing(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)
	_, err := l.SubmitScore(context.Background(), 5000)
	require.NoError(t, err)

	l.Fund(big.NewInt(1_000_000), big.NewInt(1_000_000))
	_, err = l.SubmitScore(context.Background(), 4000)
	require.NoError(t, err)

	state, err := l.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), state.DailyHighScore)
	assert.Equal(t, "1000000", state.DailyPool.String())
	assert.Len(t, l.Transactions(), 2)
}

func TestMemoryLedger_ResetDaily(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)
	_, err := l.SubmitScore(context.Background(), 5000)
	require.NoError(t, err)

	l.ResetDaily()
	l.Fund(big.NewInt(100), nil)

	_, err = l.SubmitScore(context.Background(), 10)
	require.NoError(t, err)

	state, err := l.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), state.DailyHighScore)
	assert.Equal(t, int64(5000), state.AllTimeHighScore)
	assert.Equal(t, "100", l.Paid().String())
}

func TestMemoryLedger_Errors(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)

	_, err := l.SubmitScore(context.Background(), -1)
	assert.True(t, apperrors.Is(err, apperrors.ErrChain))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.SubmitScore(ctx, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrChain))
	_, err = l.ReadState(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrChain))
}

func TestMemoryLedger_ReadStateIsCopy(t *testing.T) {
	l := NewMemoryLedger(payoutAccount)
	l.Fund(big.NewInt(10), big.NewInt(10))

	state, err := l.ReadState(context.Background())
	require.NoError(t, err)
	state.DailyPool.SetInt64(999)

	again, err := l.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", again.DailyPool.String())
}
