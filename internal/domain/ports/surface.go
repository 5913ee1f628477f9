package ports

// Surface is the terminal emulator surface a terminal stream client writes
// into. The display layer owns the implementation; the stream client only
// ever writes bytes and drives the action set.
type Surface interface {
	// Write renders raw pty output. Must tolerate partial escape sequences.
	Write(p []byte) (int, error)

	// WriteNotice renders an out-of-band client notice (reconnect banners,
	// target-gone messages) distinct from pty output.
	WriteNotice(text string)

	// Size returns the current column/row geometry.
	Size() (cols, rows int)

	// Clear clears the visible screen.
	Clear()

	// Reset performs a full terminal reset (scrollback included).
	Reset()

	// ScrollToBottom jumps the viewport to the live cursor line.
	ScrollToBottom()

	// HasSelection reports whether a copy selection exists.
	HasSelection() bool

	// CopySelection returns the selected text, if any.
	CopySelection() (string, bool)

	// SelectAll selects the whole buffer.
	SelectAll()

	// Release frees the emulator. Called exactly once from Dispose.
	Release()
}
