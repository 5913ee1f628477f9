package testutil

import (
	"bytes"
	"strings"
	"sync"
)

// MockSurface implements ports.Surface, recording everything written.
type MockSurface struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	notices   []string
	cols      int
	rows      int
	selection string
	released  int
	cleared   int
	resets    int
	scrolls   int
}

// NewMockSurface creates a surface with the given geometry.
func NewMockSurface(cols, rows int) *MockSurface {
	return &MockSurface{cols: cols, rows: rows}
}

// Write records pty output.
func (m *MockSurface) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

// WriteNotice records an out-of-band notice.
func (m *MockSurface) WriteNotice(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, text)
}

// Size returns the configured geometry.
func (m *MockSurface) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cols, m.rows
}

// Clear counts clears.
func (m *MockSurface) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
}

// Reset counts resets.
func (m *MockSurface) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

// ScrollToBottom counts scrolls.
func (m *MockSurface) ScrollToBottom() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolls++
}

// HasSelection reports whether SetSelection was called.
func (m *MockSurface) HasSelection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection != ""
}

// CopySelection returns the configured selection.
func (m *MockSurface) CopySelection() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection, m.selection != ""
}

// SelectAll sets the selection to the whole buffer.
func (m *MockSurface) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = m.buf.String()
}

// Release counts releases.
func (m *MockSurface) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
}

// SetSelection configures the selection returned by CopySelection.
func (m *MockSurface) SetSelection(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = text
}

// Output returns everything written so far.
func (m *MockSurface) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Notices returns the recorded notices.
func (m *MockSurface) Notices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notices))
	copy(out, m.notices)
	return out
}

// HasNotice reports whether any notice contains substr.
func (m *MockSurface) HasNotice(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

// Released returns how many times Release ran.
func (m *MockSurface) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
