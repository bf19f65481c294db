package services

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/leaderboard"
	"github.com/1prspctv/memory-match-madness/internal/models"
)

// toggleStore is a leaderboard that can be taken offline. It hides the
// wrapped store's history methods.
type toggleStore struct {
	leaderboard.Store
	mu   sync.Mutex
	down bool
}

func (s *toggleStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *toggleStore) Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, "insert entry", errors.New("no route to host"))
	}
	return s.Store.Insert(ctx, entry)
}
