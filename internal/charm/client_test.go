// ABOUTME: Unit tests for the Charm KV client wrapper.
// ABOUTME: Checks constants and error values that do not need a Charm server.
package charm

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"DBName", DBName, "fitlog"},
		{"DefaultHost", DefaultHost, "charm.2389.dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s = %q, got %q", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestErrReadOnly(t *testing.T) {
	wrapped := errors.Join(errors.New("set day:steps:2024-01-01"), ErrReadOnly)
	if !errors.Is(wrapped, ErrReadOnly) {
		t.Error("expected wrapped error to match ErrReadOnly")
	}
	if !strings.Contains(ErrReadOnly.Error(), "locked") {
		t.Errorf("unexpected message: %s", ErrReadOnly)
	}
}
