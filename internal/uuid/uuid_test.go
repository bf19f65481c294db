// Package uuid tests for id generation.
package uuid

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestNew verifies v4 uuids are produced.
func TestNew(t *testing.T) {
	id, err := uuid.Parse(New())
	if err != nil {
		t.Fatalf("New() produced invalid uuid: %v", err)
	}
	if id.Version() != 4 {
		t.Errorf("Version() = %d, want 4", id.Version())
	}
}

// TestNewPendingScoreID verifies the id layout and uniqueness.
func TestNewPendingScoreID(t *testing.T) {
	at := time.UnixMilli(1760000000123)

	id := NewPendingScoreID("alice", at)
	if !strings.HasPrefix(id, "alice-1760000000123-") {
		t.Errorf("id = %q, want identity and millis prefix", id)
	}
	if !regexp.MustCompile(`-[0-9a-f]{12}$`).MatchString(id) {
		t.Errorf("id = %q, want 12 hex suffix", id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPendingScoreID("alice", at)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

// TestNewTxHash verifies the hash shape.
func TestNewTxHash(t *testing.T) {
	if !regexp.MustCompile(`^0x[0-9a-f]{64}$`).MatchString(NewTxHash()) {
		t.Error("NewTxHash() has wrong shape")
	}
}
