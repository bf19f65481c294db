// Package payout settles the prize pools against the leaderboard: the top
// score of each board is submitted to the prize ledger, which pays out
// when it beats the ledger's recorded high score.
package payout

import (
	"context"
	"time"

	"github.com/1prspctv/memory-match-madness/internal/chain"
	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/models"
)

// TopScorer reads the head of a leaderboard.
type TopScorer interface {
	TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error)
}

// Board pairs a payout label with the leaderboard it settles.
type Board struct {
	Name   string `json:"name"`
	GameID string `json:"game_id"`
}

// BoardResult is the outcome for one board.
type BoardResult struct {
	Board  string `json:"board"`
	Score  int64  `json:"score,omitempty"`
	Wallet string `json:"wallet,omitempty"`
	TxHash string `json:"tx_hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result summarizes one payout run.
type Result struct {
	Message  string        `json:"message"`
	Results  []BoardResult `json:"results"`
	Duration time.Duration `json:"duration"`
}

// Service runs payouts.
type Service struct {
	scores TopScorer
	ledger chain.PrizeLedger
	boards []Board
}

// NewService creates a payout service over the given boards.
func NewService(scores TopScorer, ledger chain.PrizeLedger, boards []Board) *Service {
	return &Service{
		scores: scores,
		ledger: ledger,
		boards: boards,
	}
}

// Run submits the top score of every board. A failure on one board is
// recorded in its result and does not stop the others.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if s.ledger == nil {
		return nil, apperrors.New(apperrors.ErrConfig, "prize ledger is not configured")
	}

	start := time.Now()
	result := &Result{Results: []BoardResult{}}

	for _, board := range s.boards {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternal, "payout cancelled", err)
		}

		top, err := s.scores.TopScores(ctx, board.GameID, 1)
		if err != nil {
			logging.Error("Failed to read top score", err,
				map[string]interface{}{"board": board.Name, "game_id": board.GameID})
			result.Results = append(result.Results, BoardResult{Board: board.Name, Error: err.Error()})
			continue
		}
		if len(top) == 0 {
			continue
		}

		leader := top[0]
		br := BoardResult{
			Board:  board.Name,
			Score:  leader.Score,
			Wallet: leader.SubmitterIdentity,
		}

		tx, err := s.ledger.SubmitScore(ctx, leader.Score)
		if err != nil {
			logging.ErrorWithCode("Payout failed", string(apperrors.CodeOf(err)), err,
				map[string]interface{}{"board": board.Name, "score": leader.Score})
			br.Error = err.Error()
		} else {
			br.TxHash = tx
			logging.Info("Payout submitted",
				map[string]interface{}{
					"board":   board.Name,
					"score":   leader.Score,
					"wallet":  leader.SubmitterIdentity,
					"tx_hash": tx,
				})
		}
		result.Results = append(result.Results, br)
	}

	if len(result.Results) == 0 {
		result.Message = "No scores to process"
	} else {
		result.Message = "Payouts processed"
	}
	result.Duration = time.Since(start)
	return result, nil
}

// PrizeState returns the ledger's current state.
func (s *Service) PrizeState(ctx context.Context) (*models.PrizeState, error) {
	if s.ledger == nil {
		return nil, apperrors.New(apperrors.ErrConfig, "prize ledger is not configured")
	}
	return s.ledger.ReadState(ctx)
}
