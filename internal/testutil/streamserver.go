package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// StreamScript controls one accepted stream connection. attempt counts
// connections starting at 1. When the script returns, the connection is
// closed (normally, unless the script already sent a close frame).
type StreamScript func(conn *websocket.Conn, attempt int)

// StreamServer is a scripted websocket endpoint for stream client tests.
type StreamServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	attempts int
	script   StreamScript
	lastReq  *http.Request
}

// NewStreamServer starts a server that upgrades every request and runs
// script against each connection.
func NewStreamServer(t *testing.T, script StreamScript) *StreamServer {
	t.Helper()
	s := &StreamServer{script: script}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *StreamServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	script := s.script
	s.lastReq = r.Clone(r.Context())
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	if script != nil {
		script(conn, attempt)
	}
}

// URL returns the ws:// endpoint URL.
func (s *StreamServer) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Attempts returns how many connections were accepted.
func (s *StreamServer) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// LastRequest returns the most recent upgrade request, or nil.
func (s *StreamServer) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

// SetScript swaps the connection script.
func (s *StreamServer) SetScript(script StreamScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
}

// SendClose writes a close frame with the given code, then returns. Use
// inside scripts to exercise distinguished close codes.
func SendClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}

// ReadUntilClosed drains inbound frames until the peer goes away, handing
// each to fn (which may be nil). Useful for scripts that need to observe
// client frames while holding the connection open.
func ReadUntilClosed(conn *websocket.Conn, fn func(messageType int, data []byte)) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if fn != nil {
			fn(mt, data)
		}
	}
}
