package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetTypeThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("save game: %w", WrapPersistence("failed to write snapshot", cause))

	if got := GetType(err); got != ErrorTypePersistence {
		t.Fatalf("GetType = %q, want %q", got, ErrorTypePersistence)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to stay reachable")
	}
	if !IsType(err, ErrorTypePersistence) {
		t.Fatal("IsType should match persistence")
	}
}

func TestGetTypeDefaultsToInternal(t *testing.T) {
	if got := GetType(errors.New("boom")); got != ErrorTypeInternal {
		t.Fatalf("GetType = %q, want internal", got)
	}
	if IsType(nil, ErrorTypeInternal) {
		t.Fatal("nil error should not match any type")
	}
}

func TestMessages(t *testing.T) {
	if got := NotFoundf("game %s not found", "g1").Error(); got != "game g1 not found" {
		t.Fatalf("message = %q", got)
	}
	if got := WrapValidation("invalid body", errors.New("eof")).Error(); got != "invalid body: eof" {
		t.Fatalf("message = %q", got)
	}
}
