package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrEmptyMessage     = errors.New("message content cannot be empty")
	ErrStreamDisposed   = errors.New("stream client is disposed")
	ErrNotConnected     = errors.New("stream is not connected")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrScopeNotLoaded   = errors.New("session list not loaded for scope")
	ErrNoScope          = errors.New("no scope selected")
	ErrNoSender         = errors.New("no message sender configured")
)

// APIError is a non-2xx response from the orchestration server.
type APIError struct {
	Op         string // operation that failed, e.g. "stop session"
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// NewAPIError creates a new APIError.
func NewAPIError(op string, status int, message string) *APIError {
	return &APIError{Op: op, StatusCode: status, Message: message}
}

// StreamError wraps a transport-level failure on one stream instance.
type StreamError struct {
	Stream    string // "chat" or "terminal"
	SessionID string
	Err       error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream %s: %v", e.Stream, e.SessionID, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
