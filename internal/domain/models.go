// Package domain contains the core data model shared by the sync,
// streaming, and view-state layers.
package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus represents the server-driven state of a session.
type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"
	StatusRunning      SessionStatus = "running"
	StatusWaitingInput SessionStatus = "waiting_input"
	StatusCompleted    SessionStatus = "completed"
	StatusError        SessionStatus = "error"
)

// Terminal reports whether the status is a final state. A session in a
// terminal status is expected to close its transports; stream clients use
// this to suppress reconnection.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Active reports whether the session still accepts a stop request.
func (s SessionStatus) Active() bool {
	return s == StatusRunning || s == StatusWaitingInput
}

// Session is the client's read-mostly copy of a server-side session.
// Status transitions are owned by the server; the client only observes them.
type Session struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	Provider       string        `json:"provider"`
	CreatedAt      time.Time     `json:"created_at"`
	TerminalTarget string        `json:"terminal_target,omitempty"`
}

// ChatMessage is one entry in a session's chat log. Seq is assigned by the
// server and may be absent (zero); CreatedAt breaks ties and orders
// seq-less messages.
type ChatMessage struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq,omitempty"`
	Kind      string          `json:"kind"`
	Role      string          `json:"role"`
	Provider  string          `json:"provider,omitempty"`
	Text      string          `json:"text,omitempty"`
	ToolCall  json.RawMessage `json:"tool_call,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Before reports whether m sorts ahead of other in the chat log.
// Ordering key is (Seq ascending, CreatedAt ascending); IDs break the
// remaining ties so the order is total.
func (m ChatMessage) Before(other ChatMessage) bool {
	if m.Seq != other.Seq {
		return m.Seq < other.Seq
	}
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// ScopeKind identifies what a session listing is scoped to.
type ScopeKind string

const (
	ScopeProject ScopeKind = "project"
	ScopeTask    ScopeKind = "task"
)

// Scope identifies the project or task whose sessions are being mirrored.
// Any change of scope resets the local view state.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// IsZero reports whether no scope has been selected yet.
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == ""
}

// ConnState is the lifecycle of one stream connection.
type ConnState string

const (
	ConnIdle       ConnState = "idle"
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnRetrying   ConnState = "retrying"
	// ConnExhausted means all scheduled attempts were used; reconnecting now
	// requires an explicit trigger.
	ConnExhausted ConnState = "exhausted"
	// ConnTerminal means the stream ended for good: the owning session
	// finished or the remote target no longer exists.
	ConnTerminal ConnState = "terminal"
)
