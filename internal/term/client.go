// Package term implements the terminal stream client: a pty-like byte
// stream multiplexing raw data frames with JSON control frames, written
// into a display-owned terminal surface.
package term

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/domain/ports"
	"github.com/crewdeck/crewdeck/internal/retry"
)

const handshakeTimeout = 10 * time.Second

// Options configures a terminal stream client.
type Options struct {
	// URL is the websocket endpoint for the terminal stream.
	URL string

	// Surface is the terminal emulator the stream writes into. Required.
	// The client owns it from Attach until Dispose.
	Surface ports.Surface

	// SessionStatus reads the owning session's last-known status, when the
	// terminal is tied to a session. Nil for free-standing targets.
	SessionStatus func() domain.SessionStatus

	// Retry is the reconnect policy. Required.
	Retry *retry.Policy

	// OnChange is invoked after connection-state changes.
	OnChange func()
}

// Client maintains one terminal stream over an unreliable connection.
//
// Instantiation owns exactly one socket and one surface. After the retry
// schedule is exhausted the client arms a trap: the next SendInput triggers
// exactly one manual reconnect instead of transmitting that input.
type Client struct {
	target    string
	sessionID string
	opts      Options

	mu        sync.Mutex
	conn      *websocket.Conn
	state     domain.ConnState
	gen       int
	disposed  bool
	trapArmed bool

	runner *retry.Runner
}

// Attach creates a client bound to target and starts connecting.
func Attach(target, sessionID string, opts Options) *Client {
	c := &Client{
		target:    target,
		sessionID: sessionID,
		opts:      opts,
		state:     domain.ConnConnecting,
	}
	c.runner = retry.NewRunner(opts.Retry, c.sessionFinished, c.reconnect)

	go c.connect(c.gen)
	return c
}

// ConnState returns the connection state.
func (c *Client) ConnState() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SendInput transmits raw input bytes. While the reconnect trap is armed,
// the input is consumed to trigger exactly one manual reconnect and is not
// transmitted. Input while disconnected (and untrapped) is dropped.
func (c *Client) SendInput(data []byte) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	if c.trapArmed {
		c.trapArmed = false
		c.mu.Unlock()
		if !c.runner.TriggerManual() {
			// Session finished while trapped; nothing to reconnect to.
			c.surfaceNotice("session has ended")
		}
		return
	}
	conn := c.conn
	open := c.state == domain.ConnOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		log.Debug().Err(err).Str("target", c.target).Msg("terminal input write failed")
	}
}

// Resize sends the resize control frame for the new geometry. Call on every
// local resize; the connect path sends the initial one.
func (c *Client) Resize(cols, rows int) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == domain.ConnOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return
	}
	frame, err := domain.NewResizeFrame(cols, rows)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Debug().Err(err).Str("target", c.target).Msg("resize write failed")
	}
}

// Dispose closes the socket, cancels pending timers, and releases the
// surface. Safe to call more than once.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.gen++
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.runner.Stop()
	if conn != nil {
		_ = conn.Close()
	}
	c.opts.Surface.Release()
}

// sessionFinished gates the retry runner on the owning session's status.
func (c *Client) sessionFinished() bool {
	if c.opts.SessionStatus == nil {
		return false
	}
	return c.opts.SessionStatus().Terminal()
}

// reconnect is the retry runner's attempt callback.
func (c *Client) reconnect() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.state = domain.ConnConnecting
	c.mu.Unlock()

	c.notify()
	c.connect(gen)
}

// connect dials and pumps one socket generation.
func (c *Client) connect(gen int) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(c.opts.URL, nil)

	c.mu.Lock()
	if c.disposed || gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		log.Debug().Err(err).Str("target", c.target).Msg("terminal dial failed")
		c.closed(gen, err)
		return
	}
	c.conn = conn
	c.state = domain.ConnOpen
	c.mu.Unlock()

	c.runner.Opened()

	// Initial geometry, then again on every local resize.
	cols, rows := c.opts.Surface.Size()
	c.Resize(cols, rows)

	c.notify()
	c.readLoop(gen, conn)
}

// readLoop writes inbound frames verbatim to the surface until the socket
// dies.
func (c *Client) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.closed(gen, err)
			return
		}

		c.mu.Lock()
		stale := c.disposed || gen != c.gen
		c.mu.Unlock()
		if stale {
			return
		}
		if _, werr := c.opts.Surface.Write(data); werr != nil {
			log.Debug().Err(werr).Str("target", c.target).Msg("surface write failed")
		}
	}
}

// closed handles a dead socket of generation gen.
func (c *Client) closed(gen int, cause error) {
	c.mu.Lock()
	if c.disposed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	targetGone := websocket.IsCloseError(cause, domain.CloseTargetGone)
	if targetGone {
		c.state = domain.ConnTerminal
		c.mu.Unlock()
		c.surfaceNotice("terminal target no longer exists")
		c.notify()
		return
	}
	c.mu.Unlock()

	decision, delay := c.runner.Closed()

	c.mu.Lock()
	switch decision {
	case retry.DecisionRetry:
		c.state = domain.ConnRetrying
		log.Debug().Err(cause).Dur("delay", delay).Str("target", c.target).Msg("terminal stream retrying")
	case retry.DecisionExhausted:
		c.state = domain.ConnExhausted
		c.trapArmed = true
		c.mu.Unlock()
		c.surfaceNotice("connection lost; press any key to reconnect")
		c.notify()
		return
	case retry.DecisionFinished:
		c.state = domain.ConnTerminal
	case retry.DecisionStopped:
	}
	c.mu.Unlock()

	c.notify()
}

// surfaceNotice writes an out-of-band notice unless disposed.
func (c *Client) surfaceNotice(text string) {
	c.mu.Lock()
	disposed := c.disposed
	c.mu.Unlock()
	if !disposed {
		c.opts.Surface.WriteNotice(text)
	}
}

func (c *Client) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
