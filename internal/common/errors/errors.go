// Package errors provides standardized error handling for the tracker core.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionAlreadyActive  ErrorCode = "SESSION_ALREADY_ACTIVE"
	ErrCodeStorageReadFailed     ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed    ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeInvalidSessionPayload ErrorCode = "INVALID_SESSION_PAYLOAD"
	ErrCodeRemoteSyncFailed      ErrorCode = "REMOTE_SYNC_FAILED"
	ErrCodeSearchIndexFailed     ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeNotificationFailed    ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// TrackerError represents a structured application error.
type TrackerError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("TrackerError[%s]: %s", e.Code, e.Message)
}

// NewSessionAlreadyActiveError reports a startSession call while a session
// is already open. This is a caller bug, not a transient condition.
func NewSessionAlreadyActiveError(sessionID string) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeSessionAlreadyActive,
		Message:   "A study session is already active",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageReadFailedError creates a retryable local storage read error.
func NewStorageReadFailedError(key string, err error) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeStorageReadFailed,
		Message:   "Local storage read failed",
		Details:   fmt.Sprintf("key: %s, error: %v", key, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageWriteFailedError creates a retryable local storage write error.
func NewStorageWriteFailedError(key string, err error) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   "Local storage write failed",
		Details:   fmt.Sprintf("key: %s, error: %v", key, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSessionPayloadError creates a non-retryable payload error.
// Callers degrade to an empty session list instead of propagating it.
func NewInvalidSessionPayloadError(details string) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeInvalidSessionPayload,
		Message:   "Persisted session payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteSyncFailedError creates a retryable remote store error.
func NewRemoteSyncFailedError(operation string, err error) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeRemoteSyncFailed,
		Message:   "Remote store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchIndexFailedError creates a retryable archive indexing error.
func NewSearchIndexFailedError(sessionID string, err error) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeSearchIndexFailed,
		Message:   "Session archive indexing failed",
		Details:   fmt.Sprintf("sessionId: %s, error: %v", sessionID, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a retryable notification delivery error.
func NewNotificationFailedError(channel string, err error) *TrackerError {
	return &TrackerError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Reminder delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err is (or wraps) a *TrackerError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var te *TrackerError
	if !stderrors.As(err, &te) {
		return false
	}
	return te.Code == code
}
