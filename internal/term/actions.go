package term

// Actions is the user-facing action set for one attached terminal. All of
// them delegate to the surface except Paste, which feeds the input path and
// therefore honours the reconnect trap.
type Actions struct {
	c *Client
}

// Actions returns the action set for this client.
func (c *Client) Actions() Actions {
	return Actions{c: c}
}

// Copy returns the current selection, if any.
func (a Actions) Copy() (string, bool) {
	return a.c.opts.Surface.CopySelection()
}

// Paste transmits text as terminal input.
func (a Actions) Paste(text string) {
	a.c.SendInput([]byte(text))
}

// SelectAll selects the whole buffer.
func (a Actions) SelectAll() {
	a.c.opts.Surface.SelectAll()
}

// Clear clears the visible screen.
func (a Actions) Clear() {
	a.c.opts.Surface.Clear()
}

// Reset performs a full terminal reset.
func (a Actions) Reset() {
	a.c.opts.Surface.Reset()
}

// ScrollToBottom jumps to the live cursor line.
func (a Actions) ScrollToBottom() {
	a.c.opts.Surface.ScrollToBottom()
}

// HasSelection reports whether a copy selection exists.
func (a Actions) HasSelection() bool {
	return a.c.opts.Surface.HasSelection()
}
