// Package models provides data model definitions for the score sync core.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is an open key-value bag attached to a score (elapsed time,
// wrong attempts, ...). It is opaque to the queue.
type Metadata map[string]interface{}

// Value implements driver.Valuer so metadata can be stored as JSON text.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON text or bytes.
func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	var out Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	*m = out
	return nil
}

// Clone returns a shallow copy of the bag.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PendingScore is a completed game's score that the remote leaderboard has
// not yet confirmed. The serialized queue is a JSON array of these.
type PendingScore struct {
	ID                string     `json:"id"`
	SubmitterIdentity string     `json:"submitter_identity"`
	PlayerName        string     `json:"player_name,omitempty"`
	Score             int64      `json:"score"`
	Metadata          Metadata   `json:"metadata,omitempty"`
	EnqueuedAt        time.Time  `json:"enqueued_at"`
	AttemptCount      int        `json:"attempt_count"`
	LastAttemptAt     *time.Time `json:"last_attempt_at,omitempty"`
}

// Attempted reports whether a sync attempt was ever recorded.
func (p *PendingScore) Attempted() bool {
	return p.LastAttemptAt != nil
}

// Clone returns a copy that shares nothing mutable with p.
func (p *PendingScore) Clone() *PendingScore {
	c := *p
	c.Metadata = p.Metadata.Clone()
	if p.LastAttemptAt != nil {
		t := *p.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return &c
}
