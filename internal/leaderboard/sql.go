package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/1prspctv/memory-match-madness/internal/db"
	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/uuid"
)

// SQLStore keeps the leaderboard in the leaderboards table of a sqlite or
// postgres database.
type SQLStore struct {
	db  *db.DB
	now func() time.Time
}

// NewSQLStore wraps an open database that has the leaderboards table.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database, now: time.Now}
}

// OpenPostgresStore connects to postgres and prepares the schema.
func OpenPostgresStore(dsn string) (*SQLStore, error) {
	database, err := db.OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(database), nil
}

// OpenSQLiteStore opens a sqlite file and prepares the schema.
func OpenSQLiteStore(path string) (*SQLStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(database), nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}

	stored := *entry
	stored.ID = uuid.New()
	stored.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if stored.Metadata == nil {
		stored.Metadata = models.Metadata{}
	}

	query := s.db.Rebind(`
INSERT INTO leaderboards (id, game_id, wallet_address, player_name, score, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.GameID, stored.SubmitterIdentity, stored.PlayerName,
		stored.Score, stored.Metadata, stored.CreatedAt.UnixMilli())
	if err != nil {
		return nil, classify("insert entry", err)
	}
	return &stored, nil
}

// topScoresQuery ranks each submitter's best row. Window functions are
// available in both sqlite (3.25+) and postgres.
const topScoresQuery = `
SELECT wallet_address, player_name, score, created_at
FROM (
    SELECT wallet_address, player_name, score, created_at, seq,
           ROW_NUMBER() OVER (
               PARTITION BY wallet_address
               ORDER BY score DESC, created_at ASC, seq ASC
           ) AS rn
    FROM leaderboards
    WHERE game_id = ?
) best
WHERE rn = 1
ORDER BY score DESC, created_at ASC, seq ASC
LIMIT ?`

// TopScores implements Store.
func (s *SQLStore) TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(topScoresQuery), gameID, normalizeLimit(limit))
	if err != nil {
		return nil, classify("query top scores", err)
	}
	defer rows.Close()

	var out []models.TopScore
	for rows.Next() {
		var row models.TopScore
		var createdAt int64
		if err := rows.Scan(&row.SubmitterIdentity, &row.PlayerName, &row.Score, &createdAt); err != nil {
			return nil, classify("scan top score", err)
		}
		row.Rank = len(out) + 1
		row.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate top scores", err)
	}
	return out, nil
}

// PlayerBestScore implements History.
func (s *SQLStore) PlayerBestScore(ctx context.Context, gameID, identity string) (*models.LeaderboardEntry, error) {
	query := s.db.Rebind(`
SELECT id, game_id, wallet_address, player_name, score, metadata, created_at
FROM leaderboards
WHERE game_id = ? AND wallet_address = ?
ORDER BY score DESC, created_at ASC, seq ASC
LIMIT 1`)

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, gameID, identity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "no score for player")
	}
	if err != nil {
		return nil, classify("query player best score", err)
	}
	return entry, nil
}

// PlayerScores implements History.
func (s *SQLStore) PlayerScores(ctx context.Context, identity string) ([]models.LeaderboardEntry, error) {
	query := s.db.Rebind(`
SELECT id, game_id, wallet_address, player_name, score, metadata, created_at
FROM (
    SELECT id, game_id, wallet_address, player_name, score, metadata, created_at,
           ROW_NUMBER() OVER (
               PARTITION BY game_id
               ORDER BY score DESC, created_at ASC, seq ASC
           ) AS rn
    FROM leaderboards
    WHERE wallet_address = ?
) best
WHERE rn = 1
ORDER BY score DESC, game_id ASC`)

	rows, err := s.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, classify("query player scores", err)
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, classify("scan player score", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate player scores", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	var createdAt int64
	if err := row.Scan(&entry.ID, &entry.GameID, &entry.SubmitterIdentity, &entry.PlayerName,
		&entry.Score, &entry.Metadata, &createdAt); err != nil {
		return nil, err
	}
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &entry, nil
}

// classify maps driver errors onto the store taxonomy. Postgres integrity
// violations (class 23) and data exceptions (class 22) are permanent;
// everything else is treated as a retryable network failure.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return apperrors.Wrap(apperrors.ErrValidation, op, fmt.Errorf("%s: %w", pqErr.Code.Name(), err))
		}
	}
	return apperrors.Wrap(apperrors.ErrNetwork, op, err)
}
