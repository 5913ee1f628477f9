package testutil

import (
	"context"
	"sync"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// MockDirectory implements ports.SessionDirectory from a mutable in-memory
// list.
type MockDirectory struct {
	mu       sync.Mutex
	sessions []domain.Session
	listErr  error
	listed   int
}

// NewMockDirectory creates a directory serving the given sessions.
func NewMockDirectory(sessions ...domain.Session) *MockDirectory {
	return &MockDirectory{sessions: sessions}
}

// SetSessions replaces the served list.
func (m *MockDirectory) SetSessions(sessions ...domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = sessions
}

// SetListError makes ListSessions fail.
func (m *MockDirectory) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// ListCalls returns how many times ListSessions ran.
func (m *MockDirectory) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listed
}

// ListSessions returns the configured list or error.
func (m *MockDirectory) ListSessions(ctx context.Context, scope domain.Scope) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Session, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

// GetSession returns a session by id.
func (m *MockDirectory) GetSession(ctx context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

// MockLifecycle implements ports.SessionLifecycle, recording calls.
type MockLifecycle struct {
	mu        sync.Mutex
	calls     []string
	stopErr   error
	deleteErr error
}

// NewMockLifecycle creates an empty recorder.
func NewMockLifecycle() *MockLifecycle {
	return &MockLifecycle{}
}

// SetStopError makes StopSession fail.
func (m *MockLifecycle) SetStopError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopErr = err
}

// SetDeleteError makes DeleteSession fail.
func (m *MockLifecycle) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// Calls returns the recorded calls in order ("stop s1", "delete s1").
func (m *MockLifecycle) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// StartSession records a start call.
func (m *MockLifecycle) StartSession(ctx context.Context, scope domain.Scope, provider string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "start "+provider)
	return domain.Session{ID: "started", Provider: provider}, nil
}

// StopSession records a stop call.
func (m *MockLifecycle) StopSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "stop "+id)
	return m.stopErr
}

// DeleteSession records a delete call.
func (m *MockLifecycle) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete "+id)
	return m.deleteErr
}

// MockSender implements ports.MessageSender, recording sends.
type MockSender struct {
	mu    sync.Mutex
	sends []string
	err   error
}

// NewMockSender creates an empty sender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// SetError makes SendMessage fail.
func (m *MockSender) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sends returns the recorded "sessionID: content" entries.
func (m *MockSender) Sends() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sends))
	copy(out, m.sends)
	return out
}

// SendMessage records the send.
func (m *MockSender) SendMessage(ctx context.Context, sessionID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sends = append(m.sends, sessionID+": "+content)
	return nil
}
