package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// FakeOrchestrator is an in-process stand-in for the orchestration server's
// session REST surface. It records lifecycle calls and serves a mutable
// session list, so reconciliation tests can assert that passive mirroring
// never stops or deletes anything.
type FakeOrchestrator struct {
	srv *httptest.Server

	mu       sync.Mutex
	sessions map[string]domain.Session
	calls    []string
	failList bool
}

// NewFakeOrchestrator starts the fake server.
func NewFakeOrchestrator(t *testing.T) *FakeOrchestrator {
	t.Helper()
	f := &FakeOrchestrator{sessions: make(map[string]domain.Session)}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/{kind:projects|tasks}/{id}/sessions", f.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/{kind:projects|tasks}/{id}/sessions", f.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/sessions/{id}", f.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions/{id}", f.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/sessions/{id}/stop", f.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/sessions/{id}/messages", f.handleSend).Methods(http.MethodPost)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the server's base URL.
func (f *FakeOrchestrator) URL() string { return f.srv.URL }

// PutSession installs or replaces a session.
func (f *FakeOrchestrator) PutSession(s domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

// RemoveSession drops a session, as if it finished server-side.
func (f *FakeOrchestrator) RemoveSession(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

// FailList makes listing return 500 until called with false.
func (f *FakeOrchestrator) FailList(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = fail
}

// Calls returns the recorded mutation calls ("stop s1", "delete s1",
// "send s1", "start").
func (f *FakeOrchestrator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeOrchestrator) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if f.failList {
		f.mu.Unlock()
		http.Error(w, `{"error":"listing unavailable"}`, http.StatusInternalServerError)
		return
	}
	list := make([]domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		list = append(list, s)
	}
	f.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	_ = json.NewEncoder(w).Encode(map[string][]domain.Session{"sessions": list})
}

func (f *FakeOrchestrator) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	s, ok := f.sessions[id]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_ = json.NewEncoder(w).Encode(s)
}

func (f *FakeOrchestrator) handleStart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, "start")
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(domain.Session{ID: "new", Status: domain.StatusIdle})
}

func (f *FakeOrchestrator) handleStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	f.calls = append(f.calls, "stop "+id)
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeOrchestrator) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	f.calls = append(f.calls, "delete "+id)
	delete(f.sessions, id)
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeOrchestrator) handleSend(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	f.calls = append(f.calls, "send "+id)
	f.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}
