package tui

import (
	"bytes"
	"strings"
	"sync"
)

// TermSurface is a line-buffer terminal surface the terminal stream client
// writes into. It is not a full emulator: it keeps a bounded scrollback of
// rendered lines, strips CSI sequences, and tolerates escape sequences and
// UTF-8 runes split across writes by buffering the incomplete tail.
type TermSurface struct {
	mu       sync.Mutex
	lines    []string
	cur      []byte // current unterminated line, may end mid-escape
	cols     int
	rows     int
	maxLines int
	follow   bool
	selected bool
	released bool
	onChange func()
}

// NewTermSurface creates a surface with the given scrollback cap.
func NewTermSurface(scrollback int) *TermSurface {
	if scrollback < 1 {
		scrollback = 1000
	}
	return &TermSurface{cols: 80, rows: 24, maxLines: scrollback, follow: true}
}

// SetOnChange registers the redraw callback. Called outside the lock.
func (s *TermSurface) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetSize updates the geometry reported to the stream client.
func (s *TermSurface) SetSize(cols, rows int) {
	s.mu.Lock()
	if cols > 0 {
		s.cols = cols
	}
	if rows > 0 {
		s.rows = rows
	}
	s.mu.Unlock()
}

// Write renders raw pty output.
func (s *TermSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return len(p), nil
	}
	s.cur = append(s.cur, p...)
	s.drainLinesLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return len(p), nil
}

// drainLinesLocked moves completed lines out of the pending buffer.
func (s *TermSurface) drainLinesLocked() {
	for {
		i := bytes.IndexByte(s.cur, '\n')
		if i < 0 {
			return
		}
		line := stripControl(string(s.cur[:i]))
		s.cur = s.cur[i+1:]
		s.appendLineLocked(line)
	}
}

func (s *TermSurface) appendLineLocked(line string) {
	s.lines = append(s.lines, line)
	if over := len(s.lines) - s.maxLines; over > 0 {
		s.lines = s.lines[over:]
	}
}

// WriteNotice renders an out-of-band client notice distinct from pty output.
func (s *TermSurface) WriteNotice(text string) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.appendLineLocked(noticeStyle.Render("── " + text + " ──"))
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Size returns the current column/row geometry.
func (s *TermSurface) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Clear clears the visible screen, keeping scrollback above it.
func (s *TermSurface) Clear() {
	s.mu.Lock()
	if n := len(s.lines) - s.rows; n > 0 {
		s.lines = s.lines[:n]
	} else {
		s.lines = nil
	}
	s.cur = nil
	s.mu.Unlock()
}

// Reset drops the whole buffer, scrollback included.
func (s *TermSurface) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.cur = nil
	s.selected = false
	s.follow = true
	s.mu.Unlock()
}

// ScrollToBottom re-enables follow mode.
func (s *TermSurface) ScrollToBottom() {
	s.mu.Lock()
	s.follow = true
	s.mu.Unlock()
}

// HasSelection reports whether a copy selection exists.
func (s *TermSurface) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// CopySelection returns the selected text, if any.
func (s *TermSurface) CopySelection() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return "", false
	}
	return strings.Join(s.lines, "\n"), true
}

// SelectAll selects the whole buffer.
func (s *TermSurface) SelectAll() {
	s.mu.Lock()
	s.selected = true
	s.mu.Unlock()
}

// Release frees the surface; later writes are dropped.
func (s *TermSurface) Release() {
	s.mu.Lock()
	s.released = true
	s.onChange = nil
	s.mu.Unlock()
}

// View renders the last height lines for display.
func (s *TermSurface) View(height int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.lines
	if len(s.cur) > 0 {
		// Show the in-progress line too, minus any incomplete escape tail.
		lines = append(append([]string{}, lines...), stripControl(string(s.cur)))
	}
	if height > 0 && len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

// stripControl removes CSI/OSC escape sequences and stray control bytes,
// resolving carriage returns by keeping only the text after the last one.
func stripControl(line string) string {
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		rest := line[i+1:]
		if rest != "" {
			line = rest
		} else {
			line = line[:i]
		}
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != 0x1b {
			if c >= 0x20 || c == '\t' {
				b.WriteByte(c)
			}
			continue
		}
		// Escape sequence: skip CSI (ESC [ ... final byte 0x40-0x7e) and
		// OSC (ESC ] ... BEL). Anything incomplete is dropped silently.
		if i+1 >= len(line) {
			break
		}
		switch line[i+1] {
		case '[':
			j := i + 2
			for j < len(line) && (line[j] < 0x40 || line[j] > 0x7e) {
				j++
			}
			i = j
		case ']':
			j := i + 2
			for j < len(line) && line[j] != 0x07 {
				j++
			}
			i = j
		default:
			i++
		}
	}
	return b.String()
}
