// Package ports defines the capability interfaces between the sync layer
// and its collaborators. The split between SessionDirectory and
// SessionLifecycle is deliberate: the tab reconciler is handed only a
// directory, so passive mirroring can never stop or delete a session.
package ports

import (
	"context"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// SessionDirectory is the read-only view of the server's session list.
// This is the only capability the reconciler holds.
type SessionDirectory interface {
	// ListSessions returns the authoritative session list for a scope.
	ListSessions(ctx context.Context, scope domain.Scope) ([]domain.Session, error)

	// GetSession returns a single session by id.
	GetSession(ctx context.Context, id string) (domain.Session, error)
}

// SessionLifecycle mutates server-side sessions. Only controllers driven by
// explicit user action may hold this capability.
type SessionLifecycle interface {
	// StartSession creates and starts a session in a scope.
	StartSession(ctx context.Context, scope domain.Scope, provider string) (domain.Session, error)

	// StopSession asks the server to stop a running session.
	StopSession(ctx context.Context, id string) error

	// DeleteSession removes a session server-side.
	DeleteSession(ctx context.Context, id string) error
}

// MessageSender posts a chat message to a session. Sending is out-of-band
// REST, never a socket frame.
type MessageSender interface {
	SendMessage(ctx context.Context, sessionID, content string) error
}
