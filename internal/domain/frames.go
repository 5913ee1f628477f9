package domain

import "encoding/json"

// FrameType identifies a JSON frame on either stream.
type FrameType string

const (
	// Chat stream, inbound.
	FrameSnapshot FrameType = "snapshot"
	FrameMessage  FrameType = "message"
	FrameError    FrameType = "error"

	// Chat stream, outbound.
	FrameInterrupt FrameType = "interrupt"

	// Terminal stream, outbound.
	FrameResize FrameType = "resize"
)

// CloseTargetGone is the reserved websocket close code the server sends when
// the terminal target (tmux pane, shell process) no longer exists. It must
// never be retried.
const CloseTargetGone = 4000

// ChatFrame is one inbound JSON frame on the chat stream. Exactly one of
// Messages, Message, or Error is populated depending on Type.
type ChatFrame struct {
	Type     FrameType     `json:"type"`
	Messages []ChatMessage `json:"messages,omitempty"` // snapshot
	Message  *ChatMessage  `json:"message,omitempty"`  // message
	Error    string        `json:"error,omitempty"`    // error
}

// InterruptFrame is the only outbound control frame on the chat stream.
type InterruptFrame struct {
	Type FrameType `json:"type"`
}

// NewInterruptFrame returns the serialized interrupt control frame.
func NewInterruptFrame() ([]byte, error) {
	return json.Marshal(InterruptFrame{Type: FrameInterrupt})
}

// ResizeFrame is the outbound control frame on the terminal stream. It is
// sent once on connect and again on every local resize.
type ResizeFrame struct {
	Type FrameType `json:"type"`
	Cols int       `json:"cols"`
	Rows int       `json:"rows"`
}

// NewResizeFrame returns the serialized resize control frame.
func NewResizeFrame(cols, rows int) ([]byte, error) {
	return json.Marshal(ResizeFrame{Type: FrameResize, Cols: cols, Rows: rows})
}
