package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/domain/ports"
	"github.com/crewdeck/crewdeck/internal/retry"
)

const handshakeTimeout = 10 * time.Second

// Transcript receives a best-effort copy of the log for offline history.
// Persistence failures never affect the stream.
type Transcript interface {
	ReplaceSnapshot(sessionID string, messages []domain.ChatMessage) error
	UpsertMessage(sessionID string, message domain.ChatMessage) error
}

// Options configures a chat stream client.
type Options struct {
	// URL is the websocket endpoint for this session's chat stream.
	URL string

	// Sender posts outgoing messages over REST.
	Sender ports.MessageSender

	// SessionStatus reads the owning session's last-known status. It is
	// consulted on every close to gate reconnection; a terminal status
	// suppresses retries. Must be safe to call from timer goroutines.
	SessionStatus func() domain.SessionStatus

	// Retry is the reconnect policy. Required.
	Retry *retry.Policy

	// Transcript, when non-nil, mirrors the log into the local cache.
	Transcript Transcript

	// OnChange is invoked after every state mutation (new message, state
	// change, error). Called from stream goroutines; keep it cheap.
	OnChange func()
}

// Client maintains the message log for one session over an unreliable
// connection. The socket is receive/interrupt-only: Send goes through REST.
type Client struct {
	sessionID string
	opts      Options

	mu       sync.Mutex
	conn     *websocket.Conn
	state    domain.ConnState
	errMsg   string
	gen      int
	disposed bool

	log    *Log
	runner *retry.Runner
}

// Open creates a client and starts its first connection attempt.
func Open(sessionID string, opts Options) *Client {
	c := &Client{
		sessionID: sessionID,
		opts:      opts,
		state:     domain.ConnConnecting,
		log:       NewLog(),
	}
	c.runner = retry.NewRunner(opts.Retry, c.sessionFinished, c.reconnect)

	go c.connect(c.gen)
	return c
}

// Messages returns the current log sorted by (seq, createdAt).
func (c *Client) Messages() []domain.ChatMessage {
	return c.log.Messages()
}

// ConnState returns the connection state.
func (c *Client) ConnState() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the user-visible error string, if any.
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Send posts a message to the session via REST. The socket never carries
// outgoing chat content. Returns ErrNoSender when no sender is wired.
func (c *Client) Send(ctx context.Context, content string) error {
	if c.opts.Sender == nil {
		return domain.ErrNoSender
	}
	return c.opts.Sender.SendMessage(ctx, c.sessionID, content)
}

// Interrupt writes the interrupt control frame if the socket is currently
// open. It is a no-op otherwise: never an error, never queued.
func (c *Client) Interrupt() {
	c.mu.Lock()
	conn := c.conn
	open := c.state == domain.ConnOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return
	}
	frame, err := domain.NewInterruptFrame()
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Debug().Err(err).Str("session_id", c.sessionID).Msg("interrupt write failed")
	}
}

// Dispose closes the socket and cancels all pending timers. Safe to call
// more than once; superseded callbacks become no-ops.
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

// connect dials and runs the read loop for one socket generation. Any
// callback belonging to a superseded generation returns without touching
// state.
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
		log.Debug().Err(err).Str("session_id", c.sessionID).Msg("chat dial failed")
		c.closed(gen, err)
		return
	}
	c.conn = conn
	c.state = domain.ConnOpen
	c.errMsg = ""
	c.mu.Unlock()

	c.runner.Opened()
	c.notify()

	c.readLoop(gen, conn)
}

// readLoop pumps frames until the socket dies, then hands the close to the
// retry decision.
func (c *Client) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Socket errors and close events are deliberately not
			// distinguished: the close path owns all retry decisions.
			c.closed(gen, err)
			return
		}
		c.handleFrame(gen, data)
	}
}

// handleFrame applies one inbound frame. Malformed frames are dropped; the
// stream must survive garbage.
func (c *Client) handleFrame(gen int, data []byte) {
	c.mu.Lock()
	stale := c.disposed || gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}

	var frame domain.ChatFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Debug().Err(err).Str("session_id", c.sessionID).Msg("dropping malformed chat frame")
		return
	}

	switch frame.Type {
	case domain.FrameSnapshot:
		c.log.Replace(frame.Messages)
		if c.opts.Transcript != nil {
			if err := c.opts.Transcript.ReplaceSnapshot(c.sessionID, frame.Messages); err != nil {
				log.Debug().Err(err).Str("session_id", c.sessionID).Msg("transcript snapshot failed")
			}
		}
	case domain.FrameMessage:
		if frame.Message == nil {
			return
		}
		c.log.Upsert(*frame.Message)
		if c.opts.Transcript != nil {
			if err := c.opts.Transcript.UpsertMessage(c.sessionID, *frame.Message); err != nil {
				log.Debug().Err(err).Str("session_id", c.sessionID).Msg("transcript upsert failed")
			}
		}
	case domain.FrameError:
		c.mu.Lock()
		c.errMsg = frame.Error
		c.mu.Unlock()
	default:
		log.Debug().Str("type", string(frame.Type)).Msg("dropping unknown chat frame")
		return
	}

	c.notify()
}

// closed runs the retry decision for a dead socket of generation gen.
func (c *Client) closed(gen int, cause error) {
	c.mu.Lock()
	if c.disposed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	decision, delay := c.runner.Closed()

	c.mu.Lock()
	switch decision {
	case retry.DecisionRetry:
		c.state = domain.ConnRetrying
		log.Debug().Err(cause).Dur("delay", delay).Str("session_id", c.sessionID).Msg("chat stream retrying")
	case retry.DecisionExhausted:
		c.state = domain.ConnExhausted
		c.errMsg = "connection lost; reload to reconnect"
	case retry.DecisionFinished:
		c.state = domain.ConnTerminal
	case retry.DecisionStopped:
		// Disposed between the gen check and the decision.
	}
	c.mu.Unlock()

	c.notify()
}

func (c *Client) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
