// Package uuid provides id generation for pending scores and dev ledger
// transactions.
package uuid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// suffixLen is the number of random hex characters appended to score ids.
const suffixLen = 12

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// NewPendingScoreID builds a collision-resistant score id from the
// submitter identity, the enqueue time in milliseconds and a random suffix.
func NewPendingScoreID(identity string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", identity, at.UnixMilli(), randomHex(suffixLen))
}

// NewTxHash returns a 0x-prefixed 32-byte hex string shaped like an
// EVM transaction hash.
func NewTxHash() string {
	return "0x" + randomHex(64)
}

func randomHex(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(strings.ReplaceAll(uuid.New().String(), "-", ""))
	}
	return b.String()[:n]
}
