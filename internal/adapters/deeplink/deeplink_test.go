package deeplink

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activate")
	w, err := Watch(path)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func waitRequest(t *testing.T, w *Watcher) string {
	t.Helper()
	select {
	case id := <-w.Requests():
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for activate request")
		return ""
	}
}

func TestHandoffWriteDeliversSessionID(t *testing.T) {
	w, path := startWatcher(t)

	if err := os.WriteFile(path, []byte("sess-42\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := waitRequest(t, w); got != "sess-42" {
		t.Errorf("request = %q, want sess-42", got)
	}
}

func TestHandoffFileConsumedAfterDelivery(t *testing.T) {
	w, path := startWatcher(t)

	if err := os.WriteFile(path, []byte("sess-1"), 0600); err != nil {
		t.Fatal(err)
	}
	waitRequest(t, w)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("handoff file still present after delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPreexistingHandoffDeliveredOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activate")
	if err := os.WriteFile(path, []byte("sess-early"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := Watch(path)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if got := waitRequest(t, w); got != "sess-early" {
		t.Errorf("request = %q, want sess-early", got)
	}
}

func TestBlankHandoffIgnored(t *testing.T) {
	w, path := startWatcher(t)

	if err := os.WriteFile(path, []byte("  \n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("sess-real"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := waitRequest(t, w); got != "sess-real" {
		t.Errorf("request = %q, want sess-real (blank write skipped)", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w, _ := startWatcher(t)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
