package tts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestIsExpectedCancellation tests which backend reasons are swallowed.
func TestIsExpectedCancellation(t *testing.T) {
	tests := []struct {
		reason   string
		expected bool
	}{
		{"interrupted", true},
		{"canceled", true},
		{"cancelled", true},
		{" Interrupted ", true},
		{"synthesis-failed", false},
		{"audio-busy", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := IsExpectedCancellation(tt.reason); got != tt.expected {
				t.Errorf("IsExpectedCancellation(%q) = %v, want %v", tt.reason, got, tt.expected)
			}
		})
	}
}

// TestIsRecoverableError tests error classification.
func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, true},
		{"backend failed", ErrBackendFailed, false},
		{"wrapped backend failed", fmt.Errorf("speak: %w", ErrBackendFailed), false},
		{"search miss", ErrSearchMiss, true},
		{"backend unavailable", ErrBackendUnavailable, false},
		{"wrapped invalid config", fmt.Errorf("loading: %w", ErrInvalidConfig), false},
		{"tts error", NewTTSError(ErrBackendUnavailable, "backend", "speak"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverableError(tt.err); got != tt.expected {
				t.Errorf("IsRecoverableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

// TestErrorSeverityString tests the String() method for ErrorSeverity.
func TestErrorSeverityString(t *testing.T) {
	tests := []struct {
		severity ErrorSeverity
		expected string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{ErrorSeverity(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.expected {
			t.Errorf("ErrorSeverity(%d).String() = %v, want %v", tt.severity, got, tt.expected)
		}
	}
}

// TestTTSError tests message formatting, unwrapping and context.
func TestTTSError(t *testing.T) {
	err := NewTTSError(ErrBackendFailed, "backend", "speak").
		WithContext("reason", "synthesis-failed").
		WithContext("chunk", 2).
		WithSeverity(SeverityCritical)

	if got, want := err.Error(), "backend: speech backend failed (synthesis-failed)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrBackendFailed) {
		t.Error("errors.Is(err, ErrBackendFailed) = false, want true")
	}
	if err.Context["chunk"] != 2 {
		t.Errorf("Context[chunk] = %v, want 2", err.Context["chunk"])
	}
	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
	if err.IsRecoverable() {
		t.Error("IsRecoverable() = true, want false")
	}
	if err.Timestamp == 0 {
		t.Error("Timestamp not set")
	}

	var target *TTSError
	wrapped := fmt.Errorf("play: %w", err)
	if !errors.As(wrapped, &target) || target != err {
		t.Error("errors.As() did not find the TTSError")
	}
}

// TestTTSErrorNil tests the zero TTSError.
func TestTTSErrorNil(t *testing.T) {
	var e TTSError
	if !strings.Contains(e.Error(), "unknown") {
		t.Errorf("Error() = %q, want it to mention unknown", e.Error())
	}
	e.WithContext("k", "v")
	if e.Context["k"] != "v" {
		t.Error("WithContext() on nil map did not store the value")
	}
}
