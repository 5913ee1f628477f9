package domain

import (
	"testing"
	"time"
)

func TestSessionStatusTerminal(t *testing.T) {
	terminal := []SessionStatus{StatusCompleted, StatusError}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Terminal() = false for %q, want true", s)
		}
	}

	live := []SessionStatus{StatusIdle, StatusRunning, StatusWaitingInput}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("Terminal() = true for %q, want false", s)
		}
	}
}

func TestSessionStatusActive(t *testing.T) {
	if !StatusRunning.Active() || !StatusWaitingInput.Active() {
		t.Error("running and waiting_input must be active")
	}
	if StatusIdle.Active() || StatusCompleted.Active() || StatusError.Active() {
		t.Error("idle/completed/error must not be active")
	}
}

func TestChatMessageBefore(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b ChatMessage
		want bool
	}{
		{
			name: "lower seq first",
			a:    ChatMessage{ID: "x", Seq: 1, CreatedAt: base.Add(time.Hour)},
			b:    ChatMessage{ID: "y", Seq: 2, CreatedAt: base},
			want: true,
		},
		{
			name: "equal seq falls back to createdAt",
			a:    ChatMessage{ID: "x", Seq: 3, CreatedAt: base},
			b:    ChatMessage{ID: "y", Seq: 3, CreatedAt: base.Add(time.Second)},
			want: true,
		},
		{
			name: "absent seq sorts ahead of any positive seq",
			a:    ChatMessage{ID: "x", CreatedAt: base.Add(time.Hour)},
			b:    ChatMessage{ID: "y", Seq: 1, CreatedAt: base},
			want: true,
		},
		{
			name: "full tie broken by id",
			a:    ChatMessage{ID: "a", Seq: 5, CreatedAt: base},
			b:    ChatMessage{ID: "b", Seq: 5, CreatedAt: base},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Errorf("Before() = %v, want %v", got, tt.want)
			}
			if tt.a.Before(tt.b) && tt.b.Before(tt.a) {
				t.Error("Before() is not antisymmetric")
			}
		})
	}
}

func TestScopeIsZero(t *testing.T) {
	if !(Scope{}).IsZero() {
		t.Error("empty scope should be zero")
	}
	if (Scope{Kind: ScopeTask, ID: "t1"}).IsZero() {
		t.Error("populated scope should not be zero")
	}
}

func TestTabSame(t *testing.T) {
	if !SessionTab("s1").Same(SessionTab("s1")) {
		t.Error("identical session tabs should match")
	}
	if SessionTab("s1").Same(SessionTab("s2")) {
		t.Error("different session ids should not match")
	}
	if SessionTab("s1").Same(EditorTab("s1")) {
		t.Error("different kinds should not match")
	}
	if !NewSessionTab().Same(NewSessionTab()) {
		t.Error("new-session tabs should match each other")
	}
	if !DiffTab("a.go", true, "", "").Same(DiffTab("a.go", true, "", "")) {
		t.Error("identical diff tabs should match")
	}
	if DiffTab("a.go", true, "", "").Same(DiffTab("a.go", false, "", "")) {
		t.Error("staged flag should distinguish diff tabs")
	}
}
