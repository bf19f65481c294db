package models

import (
	"math/big"
	"time"
)

// LeaderboardEntry is one row written to a remote leaderboard.
type LeaderboardEntry struct {
	ID                string    `db:"id" json:"id,omitempty"`
	GameID            string    `db:"game_id" json:"game_id"`
	SubmitterIdentity string    `db:"wallet_address" json:"wallet_address"`
	PlayerName        string    `db:"player_name" json:"player_name,omitempty"`
	Score             int64     `db:"score" json:"score"`
	Metadata          Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at,omitempty"`
}

// TableName returns the table name for LeaderboardEntry.
func (LeaderboardEntry) TableName() string {
	return "leaderboards"
}

// TopScore is a ranked leaderboard row, highest score first.
type TopScore struct {
	Rank              int       `json:"rank"`
	SubmitterIdentity string    `json:"wallet_address"`
	PlayerName        string    `json:"player_name,omitempty"`
	Score             int64     `json:"score"`
	CreatedAt         time.Time `json:"created_at"`
}

// PrizeState mirrors the prize pool contract's getState view.
type PrizeState struct {
	DailyPool        *big.Int `json:"daily_pool"`
	AllTimePool      *big.Int `json:"all_time_pool"`
	DailyHighScore   int64    `json:"daily_high_score"`
	AllTimeHighScore int64    `json:"all_time_high_score"`
	DailyLeader      string   `json:"daily_leader,omitempty"`
	AllTimeLeader    string   `json:"all_time_leader,omitempty"`
}
