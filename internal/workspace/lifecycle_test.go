package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/testutil"
)

func TestCloseSessionStopsThenDeletes(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	store.SetScope(domain.Scope{Kind: domain.ScopeTask, ID: "t1"})
	store.ApplySessions([]domain.Session{session("S1", domain.StatusWaitingInput, now)})

	lc := testutil.NewMockLifecycle()
	c := NewController(store, lc)

	sess, _ := store.Get().Session("S1")
	if err := c.CloseSession(context.Background(), sess); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}

	calls := lc.Calls()
	if len(calls) != 2 || calls[0] != "stop S1" || calls[1] != "delete S1" {
		t.Errorf("calls = %v, want [stop S1, delete S1]", calls)
	}
}

func TestCloseSessionDeletesEvenWhenStopFails(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	store.SetScope(domain.Scope{Kind: domain.ScopeTask, ID: "t1"})
	store.ApplySessions([]domain.Session{session("S1", domain.StatusRunning, now)})

	lc := testutil.NewMockLifecycle()
	lc.SetStopError(errors.New("agent wedged"))
	c := NewController(store, lc)

	sess, _ := store.Get().Session("S1")
	if err := c.CloseSession(context.Background(), sess); err != nil {
		t.Fatalf("CloseSession() error = %v (stop failure must be swallowed)", err)
	}

	calls := lc.Calls()
	if len(calls) != 2 || calls[1] != "delete S1" {
		t.Errorf("calls = %v, want delete after failed stop", calls)
	}
}

func TestCloseSessionTerminalStatusSkipsStop(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	store.SetScope(domain.Scope{Kind: domain.ScopeTask, ID: "t1"})
	store.ApplySessions([]domain.Session{session("S1", domain.StatusCompleted, now)})

	lc := testutil.NewMockLifecycle()
	c := NewController(store, lc)

	sess, _ := store.Get().Session("S1")
	if err := c.CloseSession(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	calls := lc.Calls()
	if len(calls) != 1 || calls[0] != "delete S1" {
		t.Errorf("calls = %v, want [delete S1] only", calls)
	}
}

func TestCloseSessionEvictsBeforeServerConfirms(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	store.SetScope(domain.Scope{Kind: domain.ScopeTask, ID: "t1"})
	store.ApplySessions([]domain.Session{
		session("S1", domain.StatusRunning, now),
		session("S2", domain.StatusIdle, now.Add(time.Minute)),
	})

	lc := testutil.NewMockLifecycle()
	lc.SetDeleteError(errors.New("network blip"))
	c := NewController(store, lc)

	sess, _ := store.Get().Session("S1")
	err := c.CloseSession(context.Background(), sess)
	if err == nil {
		t.Error("CloseSession() = nil, want surfaced delete error")
	}

	// Local removal happened eagerly and is not rolled back.
	v := store.Get()
	if _, ok := v.Session("S1"); ok {
		t.Error("S1 still cached after CloseSession")
	}
	for _, tab := range v.Tabs {
		if tab.SessionID == "S1" {
			t.Error("S1 tab still open after CloseSession")
		}
	}
}

func TestStartSessionOpensTab(t *testing.T) {
	store := NewStore()
	store.SetScope(domain.Scope{Kind: domain.ScopeProject, ID: "p1"})

	lc := testutil.NewMockLifecycle()
	c := NewController(store, lc)

	sess, err := c.StartSession(context.Background(), "claude")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if tab, ok := store.Get().ActiveTab(); !ok || tab.SessionID != sess.ID {
		t.Errorf("active tab = %+v, want new session tab", tab)
	}
}

func TestStartSessionRequiresScope(t *testing.T) {
	c := NewController(NewStore(), testutil.NewMockLifecycle())
	if _, err := c.StartSession(context.Background(), "claude"); !errors.Is(err, domain.ErrNoScope) {
		t.Errorf("error = %v, want ErrNoScope", err)
	}
}

func TestStatusCellLatestValue(t *testing.T) {
	cell := NewStatusCell(domain.StatusRunning)
	read := cell.Get // captured like a long-lived callback would

	cell.Set(domain.StatusCompleted)
	if got := read(); got != domain.StatusCompleted {
		t.Errorf("Get() = %v, want latest value, not the captured one", got)
	}

	cells := map[string]*StatusCell{"S1": cell}
	TrackSessions(cells, []domain.Session{{ID: "S1", Status: domain.StatusError}})
	if cell.Get() != domain.StatusError {
		t.Errorf("TrackSessions did not update cell")
	}
}
