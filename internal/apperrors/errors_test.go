package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCodeWalksChain(t *testing.T) {
	base := New(CodeAPITimeout, "generation timed out")
	wrapped := Wrap(fmt.Errorf("advance: %w", base), CodeSessionFailed, "session failed")

	if !HasCode(wrapped, CodeSessionFailed) {
		t.Fatalf("HasCode(SESSION_FAILED) = false, want true")
	}
	if !HasCode(wrapped, CodeAPITimeout) {
		t.Fatalf("HasCode(API_TIMEOUT) = false, want true")
	}
	if HasCode(wrapped, CodeNotFound) {
		t.Fatalf("HasCode(NOT_FOUND) = true, want false")
	}
	if got := CodeOf(wrapped); got != CodeSessionFailed {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeSessionFailed)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeInternal)
	}
	if Wrap(nil, CodeInternal, "x") != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}
