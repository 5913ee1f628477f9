package term

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/retry"
	"github.com/crewdeck/crewdeck/internal/testutil"
)

func testPolicy() *retry.Policy {
	return retry.NewPolicy(testutil.FastRetryDelays, len(testutil.FastRetryDelays), 3*time.Second)
}

func TestClientWritesFramesVerbatim(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("\x1b[32m$ "))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ls -la\r\n"))
		<-hold
	})

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	testutil.WaitFor(t, time.Second, "surface output", func() bool {
		return surface.Output() == "\x1b[32m$ ls -la\r\n"
	})
}

func TestClientSendsResizeOnConnect(t *testing.T) {
	frames := make(chan []byte, 8)
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		go testutil.ReadUntilClosed(conn, func(mt int, data []byte) {
			if mt == websocket.TextMessage {
				frames <- data
			}
		})
		<-hold
	})

	surface := testutil.NewMockSurface(120, 40)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	select {
	case data := <-frames:
		var f domain.ResizeFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("resize frame did not parse: %v", err)
		}
		if f.Type != domain.FrameResize || f.Cols != 120 || f.Rows != 40 {
			t.Errorf("resize frame = %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no resize frame on connect")
	}

	// Local resize sends another.
	c.Resize(100, 30)
	select {
	case data := <-frames:
		var f domain.ResizeFrame
		_ = json.Unmarshal(data, &f)
		if f.Cols != 100 || f.Rows != 30 {
			t.Errorf("second resize frame = %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no resize frame after Resize call")
	}
}

func TestClientInputReachesServer(t *testing.T) {
	inputs := make(chan []byte, 8)
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		go testutil.ReadUntilClosed(conn, func(mt int, data []byte) {
			if mt == websocket.BinaryMessage {
				inputs <- data
			}
		})
		<-hold
	})

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	testutil.WaitFor(t, time.Second, "open", func() bool { return c.ConnState() == domain.ConnOpen })
	c.SendInput([]byte("echo hi\r"))

	select {
	case data := <-inputs:
		if string(data) != "echo hi\r" {
			t.Errorf("server got %q", data)
		}
	case <-time.After(time.Second):
		t.Fatal("input never reached server")
	}
}

func TestClientTargetGoneCloseCodeIsTerminal(t *testing.T) {
	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		testutil.SendClose(conn, domain.CloseTargetGone, "target gone")
		// Wait for the client to read the close frame.
		_, _, _ = conn.ReadMessage()
	})

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	testutil.WaitFor(t, time.Second, "terminal state", func() bool {
		return c.ConnState() == domain.ConnTerminal
	})
	if !surface.HasNotice("no longer exists") {
		t.Errorf("notices = %v, want target-gone notice", surface.Notices())
	}

	time.Sleep(30 * time.Millisecond)
	if srv.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1 (close code 4000 must not retry)", srv.Attempts())
	}
}

func TestClientExhaustionArmsInputTrap(t *testing.T) {
	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		// Immediate close every time.
	})

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	testutil.WaitFor(t, 2*time.Second, "exhaustion", func() bool {
		return c.ConnState() == domain.ConnExhausted
	})
	if !surface.HasNotice("press any key") {
		t.Errorf("notices = %v, want reconnect hint", surface.Notices())
	}

	exhaustedAt := srv.Attempts()
	time.Sleep(30 * time.Millisecond)
	if srv.Attempts() != exhaustedAt {
		t.Fatalf("attempts grew without input after exhaustion")
	}

	// The trapped keystroke reconnects and is consumed, not transmitted.
	c.SendInput([]byte("x"))
	testutil.WaitFor(t, time.Second, "manual reconnect", func() bool {
		return srv.Attempts() == exhaustedAt+1
	})
}

func TestTrappedInputReturnsWhileStreamStaysOpen(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) {
		// Immediate close every time, until the schedule is spent.
	})

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	testutil.WaitFor(t, 2*time.Second, "exhaustion", func() bool {
		return c.ConnState() == domain.ConnExhausted
	})
	srv.SetScript(func(conn *websocket.Conn, attempt int) { <-hold })

	// The manual reconnect holds its stream open for as long as the server
	// does; the keystroke that triggered it must come back immediately.
	returned := make(chan struct{})
	go func() {
		c.SendInput([]byte("x"))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("SendInput did not return while the reconnected stream was open")
	}

	testutil.WaitFor(t, time.Second, "reconnected", func() bool {
		return c.ConnState() == domain.ConnOpen
	})
}

func TestClientDisposeReleasesSurfaceOnce(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) { <-hold })

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	testutil.WaitFor(t, time.Second, "open", func() bool { return c.ConnState() == domain.ConnOpen })

	c.Dispose()
	c.Dispose()
	if surface.Released() != 1 {
		t.Errorf("Release ran %d times, want 1", surface.Released())
	}

	// Input after dispose is dropped without panicking.
	c.SendInput([]byte("x"))
}

func TestActionsDelegateToSurface(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	srv := testutil.NewStreamServer(t, func(conn *websocket.Conn, attempt int) { <-hold })

	surface := testutil.NewMockSurface(80, 24)
	c := Attach("tmux:1", "s1", Options{URL: srv.URL(), Surface: surface, Retry: testPolicy()})
	defer c.Dispose()

	a := c.Actions()
	if a.HasSelection() {
		t.Error("HasSelection() = true on fresh surface")
	}
	surface.SetSelection("picked text")
	if !a.HasSelection() {
		t.Error("HasSelection() = false after SetSelection")
	}
	if text, ok := a.Copy(); !ok || text != "picked text" {
		t.Errorf("Copy() = %q, %v", text, ok)
	}

	a.Clear()
	a.Reset()
	a.ScrollToBottom()
}
