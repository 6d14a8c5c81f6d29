package tts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for the TTS system.
var (
	// Backend errors
	ErrBackendFailed      = errors.New("speech backend failed")
	ErrBackendUnavailable = errors.New("speech backend is not available")
	ErrVoiceNotFound      = errors.New("requested voice not found")

	// Input errors
	ErrEmptyContent = errors.New("empty content provided")

	// Mapping errors
	ErrNoMapping  = errors.New("no source mapping for offset")
	ErrSearchMiss = errors.New("word not found in rendered text")
	ErrNoSurface  = errors.New("no surface for highlight target")

	// Orchestrator errors
	ErrInvalidState = errors.New("invalid state for operation")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// expectedReasons are backend error reasons that report a deliberate
// cancellation rather than a failure.
var expectedReasons = []string{"interrupted", "canceled", "cancelled"}

// IsExpectedCancellation reports whether a backend error reason means the
// utterance was cancelled on purpose.
func IsExpectedCancellation(reason string) bool {
	reason = strings.ToLower(strings.TrimSpace(reason))
	for _, r := range expectedReasons {
		if reason == r {
			return true
		}
	}
	return false
}

// IsRecoverableError checks if an error is recoverable. A failed backend
// ends the playback session, so it is not.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrBackendFailed),
		errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, ErrInvalidConfig):
		return false
	}

	return true
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for warnings that don't prevent operation.
	SeverityWarning
	// SeverityError is for errors that prevent normal operation.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// TTSError provides detailed error information.
type TTSError struct {
	Err       error          // The underlying error
	Component string         // Component that generated the error
	Action    string         // Action being performed when error occurred
	Severity  ErrorSeverity  // Severity of the error
	Timestamp int64          // Unix timestamp when error occurred
	Context   map[string]any // Additional context
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	if e.Err == nil {
		return "unknown TTS error"
	}
	msg := e.Err.Error()
	if e.Component != "" {
		msg = fmt.Sprintf("%s: %s", e.Component, msg)
	}
	if reason, ok := e.Context["reason"]; ok {
		msg = fmt.Sprintf("%s (%v)", msg, reason)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *TTSError) IsRecoverable() bool {
	return IsRecoverableError(e.Err)
}

// NewTTSError creates a new TTS error with context.
func NewTTSError(err error, component, action string) *TTSError {
	return &TTSError{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
		Timestamp: time.Now().Unix(),
		Context:   make(map[string]any),
	}
}

// WithSeverity sets the error severity.
func (e *TTSError) WithSeverity(severity ErrorSeverity) *TTSError {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *TTSError) WithContext(key string, value any) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
