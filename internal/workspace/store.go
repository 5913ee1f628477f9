// Package workspace holds the client-side view state for one scope and the
// two controllers that may mutate it: the tab reconciler (passive add/remove
// mirroring of the server's session list) and the session lifecycle
// controller (explicit user-triggered stop/delete).
package workspace

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// View is an immutable snapshot of the workspace state.
type View struct {
	Scope domain.Scope

	// Tabs is the ordered tab strip; Active indexes into it (-1 = none).
	Tabs   []domain.Tab
	Active int

	// Sessions is the cached authoritative list for Scope. Loaded reports
	// whether it has been fetched at least once for this scope; mirroring
	// must not run before that.
	Sessions []domain.Session
	Loaded   bool
}

// ActiveTab returns the active tab, if any.
func (v View) ActiveTab() (domain.Tab, bool) {
	if v.Active < 0 || v.Active >= len(v.Tabs) {
		return domain.Tab{}, false
	}
	return v.Tabs[v.Active], true
}

// Session returns the cached session with the given id.
func (v View) Session(id string) (domain.Session, bool) {
	for _, s := range v.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Session{}, false
}

// Store is the observable state container. All mutation goes through its
// methods; subscribers are notified after every change.
type Store struct {
	mu       sync.RWMutex
	scope    domain.Scope
	tabs     []domain.Tab
	active   int
	sessions []domain.Session
	loaded   bool

	// pendingActivate is the one-shot deep-link slot. It survives fetch
	// failures and is cleared the first time it is consumed against a
	// loaded list.
	pendingActivate string
	hasPending      bool

	subscribers map[string]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		active:      -1,
		subscribers: make(map[string]chan struct{}),
	}
}

// Get returns a snapshot of the current state.
func (s *Store) Get() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *Store) viewLocked() View {
	tabs := make([]domain.Tab, len(s.tabs))
	copy(tabs, s.tabs)
	sessions := make([]domain.Session, len(s.sessions))
	copy(sessions, s.sessions)
	return View{
		Scope:    s.scope,
		Tabs:     tabs,
		Active:   s.active,
		Sessions: sessions,
		Loaded:   s.loaded,
	}
}

// Subscribe registers a change listener. The returned channel receives a
// coalesced signal after each mutation; cancel unregisters it and closes the
// channel so ranging consumers terminate. Cancel is idempotent.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	id := uuid.New().String()
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; !ok {
			return
		}
		delete(s.subscribers, id)
		close(ch)
	}
	return ch, cancel
}

// notifyLocked signals all subscribers. Callers hold mu.
func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// Subscriber already has a pending signal.
		}
	}
}

// SetScope switches scope, clearing tabs and resetting sync state. A no-op
// when the scope is unchanged.
func (s *Store) SetScope(scope domain.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope == scope {
		return
	}
	s.scope = scope
	s.tabs = nil
	s.active = -1
	s.sessions = nil
	s.loaded = false
	log.Debug().Str("kind", string(scope.Kind)).Str("id", scope.ID).Msg("scope changed, view state reset")
	s.notifyLocked()
}

// Scope returns the current scope.
func (s *Store) Scope() domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// RequestActivate loads the one-shot deep-link slot. The next reconcile
// against a loaded list consumes it.
func (s *Store) RequestActivate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingActivate = sessionID
	s.hasPending = true
	s.notifyLocked()
}

// OpenTab appends a tab and activates it. If an equivalent tab already
// exists it is activated instead; a live session never gets a second tab.
func (s *Store) OpenTab(tab domain.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tabs {
		if t.Same(tab) {
			s.active = i
			s.notifyLocked()
			return
		}
	}
	s.tabs = append(s.tabs, tab)
	s.active = len(s.tabs) - 1
	s.notifyLocked()
}

// CloseTab removes the tab at index. This only mutates view state; closing
// a session tab does not touch the session itself.
func (s *Store) CloseTab(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tabs) {
		return
	}
	s.tabs = append(s.tabs[:index], s.tabs[index+1:]...)
	s.active = clampActive(s.active, index, len(s.tabs))
	s.notifyLocked()
}

// Activate selects the tab at index.
func (s *Store) Activate(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tabs) {
		return
	}
	s.active = index
	s.notifyLocked()
}

// EvictSession removes a session from the cached list and closes its tab.
// Called by the lifecycle controller before the server confirms deletion,
// so reconciliation cannot race and re-open the tab.
func (s *Store) EvictSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept

	for i, t := range s.tabs {
		if t.Kind == domain.TabSession && t.SessionID == id {
			s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
			s.active = clampActive(s.active, i, len(s.tabs))
			break
		}
	}
	s.notifyLocked()
}

// ApplySessions installs a freshly fetched authoritative list, mirrors it
// into the tab strip, and consumes any pending activate request. This is
// the only place tabs are opened or closed without a direct user action,
// and it never stops or deletes a session.
func (s *Store) ApplySessions(sessions []domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make([]domain.Session, len(sessions))
	copy(s.sessions, sessions)
	s.loaded = true

	authoritative := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		authoritative[sess.ID] = true
	}

	// Close tabs for sessions gone server-side.
	kept := s.tabs[:0]
	activeTab := domain.Tab{}
	hadActive := s.active >= 0 && s.active < len(s.tabs)
	if hadActive {
		activeTab = s.tabs[s.active]
	}
	for _, t := range s.tabs {
		if t.Kind == domain.TabSession && !authoritative[t.SessionID] {
			continue
		}
		kept = append(kept, t)
	}
	s.tabs = kept

	// Open tabs for sessions that have none.
	tabbed := make(map[string]bool)
	for _, t := range s.tabs {
		if t.Kind == domain.TabSession {
			tabbed[t.SessionID] = true
		}
	}
	for _, sess := range sessions {
		if !tabbed[sess.ID] {
			s.tabs = append(s.tabs, domain.SessionTab(sess.ID))
		}
	}

	// Recompute active: keep the previously active tab if it survived; if
	// it was closed, fall back to its old position. Newly opened tabs are
	// only force-activated when they are the only tab.
	oldIndex := s.active
	s.active = -1
	if hadActive {
		for i, t := range s.tabs {
			if t.Same(activeTab) {
				s.active = i
				break
			}
		}
		if s.active == -1 && len(s.tabs) > 0 {
			if oldIndex >= len(s.tabs) {
				oldIndex = len(s.tabs) - 1
			}
			s.active = oldIndex
		}
	}
	if s.active == -1 && len(s.tabs) == 1 {
		s.active = 0
	}

	s.consumePendingLocked(sessions)
	s.notifyLocked()
}

// consumePendingLocked applies the one-shot activate request against a
// loaded list: exact match wins, otherwise the newest session by creation
// time, otherwise nothing. The request is cleared in every case.
func (s *Store) consumePendingLocked(sessions []domain.Session) {
	if !s.hasPending {
		return
	}
	requested := s.pendingActivate
	target := requested
	s.pendingActivate = ""
	s.hasPending = false

	if len(sessions) == 0 {
		return
	}

	found := false
	for _, sess := range sessions {
		if sess.ID == target {
			found = true
			break
		}
	}
	if !found {
		sorted := make([]domain.Session, len(sessions))
		copy(sorted, sessions)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		target = sorted[0].ID
		log.Debug().Str("requested", requested).Str("fallback", target).Msg("deep link session missing, activating newest")
	}

	for i, t := range s.tabs {
		if t.Kind == domain.TabSession && t.SessionID == target {
			s.active = i
			return
		}
	}
}

// clampActive adjusts the active index after removing the tab at removed.
func clampActive(active, removed, n int) int {
	if n == 0 {
		return -1
	}
	switch {
	case active > removed:
		active--
	case active == removed:
		if active >= n {
			active = n - 1
		}
	}
	if active >= n {
		active = n - 1
	}
	return active
}
