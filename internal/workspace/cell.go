package workspace

import (
	"sync"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// StatusCell is a single-slot latest-value cell for a session's status.
//
// It is written synchronously whenever the cached list refreshes and read
// only inside asynchronous stream callbacks, so a long-lived timer callback
// never captures a stale status.
type StatusCell struct {
	mu     sync.RWMutex
	status domain.SessionStatus
}

// NewStatusCell creates a cell holding the initial status.
func NewStatusCell(initial domain.SessionStatus) *StatusCell {
	return &StatusCell{status: initial}
}

// Set stores the latest observed status.
func (c *StatusCell) Set(status domain.SessionStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// Get returns the latest observed status. Safe from any goroutine.
func (c *StatusCell) Get() domain.SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// TrackSessions updates cells from a refreshed session list. Sessions
// missing from the list are left at their last-known status; the list
// being authoritative, a missing session usually means its tab is about to
// close anyway.
func TrackSessions(cells map[string]*StatusCell, sessions []domain.Session) {
	for _, s := range sessions {
		if cell, ok := cells[s.ID]; ok {
			cell.Set(s.Status)
		}
	}
}
