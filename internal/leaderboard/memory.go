package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/uuid"
)

// MemoryStore is an in-process leaderboard for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.LeaderboardEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Insert implements Store.
func (m *MemoryStore) Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, "insert entry", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *entry
	stored.ID = uuid.New()
	stored.Metadata = entry.Metadata.Clone()
	// Millisecond precision matches the SQL stores.
	stored.CreatedAt = m.now().UTC().Truncate(time.Millisecond)
	m.entries = append(m.entries, stored)

	out := stored
	return &out, nil
}

// TopScores implements Store.
func (m *MemoryStore) TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := bestPerSubmitter(m.entries, func(e models.LeaderboardEntry) bool { return e.GameID == gameID })
	limit = normalizeLimit(limit)
	if len(best) > limit {
		best = best[:limit]
	}

	out := make([]models.TopScore, len(best))
	for i, e := range best {
		out[i] = models.TopScore{
			Rank:              i + 1,
			SubmitterIdentity: e.SubmitterIdentity,
			PlayerName:        e.PlayerName,
			Score:             e.Score,
			CreatedAt:         e.CreatedAt,
		}
	}
	return out, nil
}

// PlayerBestScore implements History.
func (m *MemoryStore) PlayerBestScore(ctx context.Context, gameID, identity string) (*models.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := bestPerSubmitter(m.entries, func(e models.LeaderboardEntry) bool {
		return e.GameID == gameID && e.SubmitterIdentity == identity
	})
	if len(best) == 0 {
		return nil, apperrors.New(apperrors.ErrNotFound, "no score for player")
	}
	out := best[0]
	return &out, nil
}

// PlayerScores implements History.
func (m *MemoryStore) PlayerScores(ctx context.Context, identity string) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byGame := make(map[string]models.LeaderboardEntry)
	for _, e := range m.entries {
		if e.SubmitterIdentity != identity {
			continue
		}
		if cur, ok := byGame[e.GameID]; !ok || ranksAbove(e, cur) {
			byGame[e.GameID] = e
		}
	}

	out := make([]models.LeaderboardEntry, 0, len(byGame))
	for _, e := range byGame {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].GameID < out[j].GameID
	})
	return out, nil
}

// Entries returns every stored row in insertion order.
func (m *MemoryStore) Entries() []models.LeaderboardEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.LeaderboardEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

// bestPerSubmitter keeps each submitter's top entry among those matching
// keep and returns them ranked. Equal score and time fall back to insertion
// order.
func bestPerSubmitter(entries []models.LeaderboardEntry, keep func(models.LeaderboardEntry) bool) []models.LeaderboardEntry {
	best := make(map[string]int)
	for i, e := range entries {
		if !keep(e) {
			continue
		}
		if cur, ok := best[e.SubmitterIdentity]; !ok || ranksAbove(e, entries[cur]) {
			best[e.SubmitterIdentity] = i
		}
	}

	indexes := make([]int, 0, len(best))
	for _, i := range best {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]models.LeaderboardEntry, len(indexes))
	for n, i := range indexes {
		out[n] = entries[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return ranksAbove(out[i], out[j]) })
	return out
}

// ranksAbove orders by score descending, then earliest submission.
func ranksAbove(a, b models.LeaderboardEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
