// Package services wires the queue, sync engine, scheduler, leaderboard and
// payout into the score service the gateways talk to.
package services

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/1prspctv/memory-match-madness/internal/chain"
	"github.com/1prspctv/memory-match-madness/internal/config"
	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/leaderboard"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/payout"
	"github.com/1prspctv/memory-match-madness/internal/storage"
	syncpkg "github.com/1prspctv/memory-match-madness/internal/sync"
	"github.com/1prspctv/memory-match-madness/internal/sync/queue"
	"github.com/1prspctv/memory-match-madness/internal/sync/scheduler"
	"github.com/1prspctv/memory-match-madness/internal/sync/visibility"
)

// ScoreService is the application core: durable score submission with
// background sync to the leaderboard.
type ScoreService struct {
	Queue       *queue.ScoreQueue
	Engine      *syncpkg.SyncEngine
	Scheduler   *scheduler.Scheduler
	Visibility  *visibility.Broadcaster
	Leaderboard leaderboard.Store
	Ledger      chain.PrizeLedger
	Payout      *payout.Service

	closers []io.Closer
	once    sync.Once
}

// Dependencies lets callers supply prebuilt components. Nil fields are
// built from the configuration.
type Dependencies struct {
	Backend     storage.Backend
	Leaderboard leaderboard.Store
	Ledger      chain.PrizeLedger
}

// NewScoreService builds the service from cfg.
func NewScoreService(cfg *config.Config, deps Dependencies) (*ScoreService, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &ScoreService{}

	backend := deps.Backend
	if backend == nil {
		b, closer, err := openBackend(cfg.Storage)
		if err != nil {
			return nil, err
		}
		backend = b
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
	}

	store := deps.Leaderboard
	if store == nil {
		opened, err := leaderboard.Open(cfg.LeaderboardOptions())
		if err != nil {
			s.Close()
			return nil, apperrors.Wrap(apperrors.ErrConfig, "failed to open leaderboard", err)
		}
		store = opened
		s.closers = append(s.closers, store)
	}

	ledger := deps.Ledger
	if ledger == nil {
		ledger = chain.NewMemoryLedger(cfg.Chain.PayoutAccount)
	}

	s.Queue = queue.NewScoreQueue(backend, cfg.QueueSettings())
	s.Leaderboard = store
	s.Engine = syncpkg.NewSyncEngine(s.Queue, store, cfg.EngineSettings())
	s.Visibility = visibility.NewBroadcaster()
	s.Scheduler = scheduler.NewScheduler(s.Engine, s.Queue, s.Visibility, cfg.SchedulerSettings())
	s.Ledger = ledger
	s.Payout = payout.NewService(store, ledger, boards(cfg.Sync.Destinations))

	logging.Info("Score service ready",
		map[string]interface{}{
			"storage":      cfg.Storage.Backend,
			"leaderboard":  cfg.Leaderboard.Backend,
			"destinations": strings.Join(cfg.Sync.Destinations, ","),
		})
	return s, nil
}

func openBackend(cfg config.StorageConfig) (storage.Backend, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil, nil
	case config.StorageSQLite, "":
		b, err := storage.OpenSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrPersistence, "failed to open score storage", err)
		}
		return b, b, nil
	default:
		return nil, nil, apperrors.New(apperrors.ErrConfig, "unknown storage backend: "+cfg.Backend)
	}
}

// boards names each destination for payout results: the daily board is
// "daily", the all-time board "alltime".
func boards(destinations []string) []payout.Board {
	out := make([]payout.Board, 0, len(destinations))
	for _, dest := range destinations {
		name := dest
		if i := strings.LastIndex(dest, "-"); i >= 0 && i < len(dest)-1 {
			name = dest[i+1:]
		}
		out = append(out, payout.Board{Name: name, GameID: dest})
	}
	return out
}

// Start starts the background scheduler and returns its stop handle.
func (s *ScoreService) Start(ctx context.Context) (stop func()) {
	return s.Scheduler.Start(ctx)
}

// Submit durably records a finished game's score and tries to sync it
// right away.
func (s *ScoreService) Submit(ctx context.Context, identity, playerName string, score int64, metadata models.Metadata) (*syncpkg.SubmitResult, error) {
	var opts []queue.EnqueueOption
	if playerName != "" {
		opts = append(opts, queue.WithPlayerName(playerName))
	}
	return s.Engine.Submit(ctx, identity, score, metadata, opts...)
}

// Pending returns the scores waiting to sync.
func (s *ScoreService) Pending() ([]*models.PendingScore, error) {
	return s.Queue.List()
}

// TopScores returns a board's ranking.
func (s *ScoreService) TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error) {
	return s.Leaderboard.TopScores(ctx, gameID, limit)
}

// PlayerRank returns a submitter's rank on a board.
func (s *ScoreService) PlayerRank(ctx context.Context, gameID, identity string) (int, bool, error) {
	return leaderboard.PlayerRank(ctx, s.Leaderboard, gameID, identity)
}

// PlayerBestScore returns a submitter's best entry on a board when the
// leaderboard keeps per-player history.
func (s *ScoreService) PlayerBestScore(ctx context.Context, gameID, identity string) (*models.LeaderboardEntry, error) {
	history, ok := s.Leaderboard.(leaderboard.History)
	if !ok {
		return nil, apperrors.New(apperrors.ErrInvalid, "leaderboard backend does not keep player history")
	}
	return history.PlayerBestScore(ctx, gameID, identity)
}

// Close releases the storage and leaderboard handles the service opened.
// Stop the scheduler first.
func (s *ScoreService) Close() error {
	var firstErr error
	s.once.Do(func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i].Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
