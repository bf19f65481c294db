// Package leaderboard provides clients for the remote leaderboard store.
//
// A Store accepts score entries per game board and ranks them: one row per
// submitter (their best score), highest score first, ties broken by the
// earliest submission.
package leaderboard

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/models"
)

const (
	// DefaultLimit is the number of rows TopScores returns when limit <= 0.
	DefaultLimit = 10

	// MaxLimit caps TopScores.
	MaxLimit = 1000

	// rankWindow is how deep PlayerRank looks for a submitter.
	rankWindow = 1000
)

// Store is the remote leaderboard contract.
type Store interface {
	// Insert writes one entry and returns it as stored. Failures are
	// NETWORK_ERROR (retryable) or VALIDATION_ERROR (permanent).
	Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error)

	// TopScores returns the ranked board for gameID.
	TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error)

	// Close releases the store's resources.
	Close() error
}

// History is implemented by stores that can answer per-player queries.
type History interface {
	// PlayerBestScore returns the submitter's best entry for gameID, or
	// NOT_FOUND.
	PlayerBestScore(ctx context.Context, gameID, identity string) (*models.LeaderboardEntry, error)

	// PlayerScores returns the submitter's best entry for every game,
	// highest score first.
	PlayerScores(ctx context.Context, identity string) ([]models.LeaderboardEntry, error)
}

// PlayerRank returns the 1-based rank of identity on gameID's board. ok is
// false when the submitter is not within the top rankWindow rows.
func PlayerRank(ctx context.Context, store Store, gameID, identity string) (rank int, ok bool, err error) {
	rows, err := store.TopScores(ctx, gameID, rankWindow)
	if err != nil {
		return 0, false, err
	}
	for i, row := range rows {
		if row.SubmitterIdentity == identity {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// ValidateEntry checks an entry before it is sent anywhere.
func ValidateEntry(entry *models.LeaderboardEntry) error {
	if entry == nil {
		return apperrors.New(apperrors.ErrValidation, "entry is required")
	}
	if strings.TrimSpace(entry.GameID) == "" {
		return apperrors.New(apperrors.ErrValidation, "game_id is required")
	}
	if strings.TrimSpace(entry.SubmitterIdentity) == "" {
		return apperrors.New(apperrors.ErrValidation, "wallet_address is required")
	}
	if entry.Score < 0 {
		return apperrors.New(apperrors.ErrValidation, fmt.Sprintf("score must be non-negative, got %d", entry.Score))
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
