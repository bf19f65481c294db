// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorCodeValues verifies all error codes have non-empty values.
func TestErrorCodeValues(t *testing.T) {
	codes := []ErrorCode{
		ErrInternal, ErrInvalid, ErrNotFound, ErrValidation, ErrConfig,
		ErrPersistence, ErrNetwork, ErrSyncFailed, ErrChain,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if code == "" {
			t.Error("error code must not be empty")
		}
		if seen[code] {
			t.Errorf("duplicate error code %q", code)
		}
		seen[code] = true
	}
}

// TestAppError_Error verifies message formatting with and without a cause.
func TestAppError_Error(t *testing.T) {
	plain := New(ErrValidation, "score must be non-negative")
	if got := plain.Error(); got != "[VALIDATION_ERROR] score must be non-negative" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(ErrPersistence, "write queue", errors.New("disk full"))
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("Error() = %q, want cause included", wrapped.Error())
	}
}

// TestAppError_Unwrap verifies errors.Is sees through AppError.
func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrNetwork, "insert entry", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

// TestIs verifies code matching through fmt wrapping and nested AppErrors.
func TestIs(t *testing.T) {
	inner := Wrap(ErrNetwork, "insert entry", errors.New("timeout"))
	outer := fmt.Errorf("destination daily: %w", Wrap(ErrSyncFailed, "write failed", inner))

	if !Is(outer, ErrSyncFailed) {
		t.Error("expected ErrSyncFailed in chain")
	}
	if !Is(outer, ErrNetwork) {
		t.Error("expected nested ErrNetwork in chain")
	}
	if Is(outer, ErrPersistence) {
		t.Error("did not expect ErrPersistence in chain")
	}
	if Is(errors.New("plain"), ErrInternal) {
		t.Error("plain errors carry no code")
	}
	if Is(nil, ErrInternal) {
		t.Error("nil carries no code")
	}
}

// TestCodeOf verifies code extraction defaults.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("wrap: %w", New(ErrChain, "revert"))); got != ErrChain {
		t.Errorf("CodeOf() = %s, want %s", got, ErrChain)
	}
	if got := CodeOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf() = %s, want %s", got, ErrInternal)
	}
}
