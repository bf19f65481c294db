// Package models tests for data model definitions.
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================================================
// Metadata Tests
// =====================================================

func TestMetadata_ValueScanRoundTrip(t *testing.T) {
	in := Metadata{"elapsed_ms": float64(41250), "wrong_attempts": float64(3)}

	val, err := in.Value()
	require.NoError(t, err)

	var out Metadata
	require.NoError(t, out.Scan(val))
	assert.Equal(t, in, out)

	var fromBytes Metadata
	require.NoError(t, fromBytes.Scan([]byte(val.(string))))
	assert.Equal(t, in, fromBytes)
}

func TestMetadata_ScanNilAndEmpty(t *testing.T) {
	m := Metadata{"x": 1}
	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	m = Metadata{"x": 1}
	require.NoError(t, m.Scan([]byte{}))
	assert.Nil(t, m)

	assert.Error(t, m.Scan(42))
}

func TestMetadata_NilValue(t *testing.T) {
	var m Metadata
	val, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", val)
}

// =====================================================
// PendingScore Tests
// =====================================================

func TestPendingScore_CloneIsDeep(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	orig := &PendingScore{
		ID:                "alice-1",
		SubmitterIdentity: "alice",
		Score:             5000,
		Metadata:          Metadata{"elapsed_ms": 1000},
		AttemptCount:      1,
		LastAttemptAt:     &at,
	}

	c := orig.Clone()
	c.Metadata["elapsed_ms"] = 2
	*c.LastAttemptAt = at.Add(time.Hour)

	assert.Equal(t, 1000, orig.Metadata["elapsed_ms"])
	assert.Equal(t, at, *orig.LastAttemptAt)
}

func TestPendingScore_Attempted(t *testing.T) {
	p := &PendingScore{}
	assert.False(t, p.Attempted())

	now := time.Now()
	p.LastAttemptAt = &now
	assert.True(t, p.Attempted())
}

func TestPendingScore_JSONOmitsUnattempted(t *testing.T) {
	p := PendingScore{ID: "a", SubmitterIdentity: "alice", Score: 1}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_attempt_at")
	assert.Contains(t, string(data), `"attempt_count":0`)
}
