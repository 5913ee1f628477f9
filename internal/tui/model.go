// Package tui is the terminal front end: a bubbletea program that renders
// the workspace tab strip, a chat pane, and a terminal pane, and feeds user
// input into the stream clients.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/chat"
	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/term"
	"github.com/crewdeck/crewdeck/internal/workspace"
)

// pane focus targets.
type focusArea int

const (
	focusChat focusArea = iota
	focusTerminal
)

// Options wires the model to the rest of the application.
type Options struct {
	Store      *workspace.Store
	Reconciler *workspace.Reconciler
	Controller *workspace.Controller
	Version    string

	// Scrollback is the terminal surface scrollback cap in lines.
	Scrollback int

	// NewChat builds a chat stream client for a session. The returned client
	// is already opened.
	NewChat func(sessionID string, status func() domain.SessionStatus, onChange func()) *chat.Client

	// NewTerm builds and attaches a terminal stream client for a session's
	// terminal target.
	NewTerm func(target, sessionID string, surface *TermSurface, status func() domain.SessionStatus, onChange func()) *term.Client
}

// sessionPane bundles the per-session stream clients and surface.
type sessionPane struct {
	chat    *chat.Client
	term    *term.Client
	surface *TermSurface
	cell    *workspace.StatusCell
}

// Model is the root bubbletea model.
type Model struct {
	opts   Options
	width  int
	height int

	panes map[string]*sessionPane
	cells map[string]*workspace.StatusCell

	chatView viewport.Model
	input    textinput.Model
	focus    focusArea

	view        workspace.View
	updates     chan tea.Msg
	unsubscribe func()
}

type storeChangedMsg struct{}
type streamChangedMsg struct{}

// New creates the model. Run it with tea.NewProgram(m, tea.WithAltScreen()).
func New(opts Options) *Model {
	in := textinput.New()
	in.Placeholder = "message the agent (enter to send, esc to interrupt)"
	in.Prompt = "> "
	in.Focus()

	m := &Model{
		opts:     opts,
		panes:    make(map[string]*sessionPane),
		cells:    make(map[string]*workspace.StatusCell),
		chatView: viewport.New(0, 0),
		input:    in,
		view:     opts.Store.Get(),
		updates:  make(chan tea.Msg, 16),
	}
	return m
}

// Init subscribes to the store and kicks the first refresh.
func (m *Model) Init() tea.Cmd {
	ch, cancel := m.opts.Store.Subscribe()
	m.unsubscribe = cancel
	go func() {
		for range ch {
			select {
			case m.updates <- storeChangedMsg{}:
			default:
			}
		}
	}()
	m.opts.Reconciler.Invalidate()
	return m.listen()
}

// listen waits for the next push from the store or a stream client.
func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// notifyStream is handed to stream clients as their OnChange callback.
func (m *Model) notifyStream() {
	select {
	case m.updates <- streamChangedMsg{}:
	default:
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case storeChangedMsg:
		m.view = m.opts.Store.Get()
		m.syncPanes()
		m.renderChat()
		return m, m.listen()

	case streamChangedMsg:
		m.renderChat()
		return m, m.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case "ctrl+t":
		if m.focus == focusChat {
			m.focus = focusTerminal
			m.input.Blur()
		} else {
			m.focus = focusChat
			m.input.Focus()
		}
		return m, nil

	case "ctrl+right", "ctrl+l":
		m.cycleTab(1)
		return m, nil

	case "ctrl+left", "ctrl+h":
		m.cycleTab(-1)
		return m, nil

	case "ctrl+n":
		go func() {
			if _, err := m.opts.Controller.StartSession(context.Background(), "claude"); err != nil {
				log.Warn().Err(err).Msg("start session failed")
			}
			m.opts.Reconciler.Invalidate()
		}()
		return m, nil

	case "ctrl+w":
		m.closeActive()
		return m, nil

	case "ctrl+r":
		m.opts.Reconciler.Invalidate()
		return m, nil
	}

	if m.focus == focusTerminal {
		return m.handleTerminalKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pane := m.activePane()
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || pane == nil || pane.chat == nil {
			return m, nil
		}
		m.input.Reset()
		go func() {
			if err := pane.chat.Send(context.Background(), text); err != nil {
				log.Warn().Err(err).Msg("send failed")
				m.notifyStream()
			}
		}()
		return m, nil

	case "esc":
		if pane != nil && pane.chat != nil {
			pane.chat.Interrupt()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleTerminalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pane := m.activePane()
	if pane == nil || pane.term == nil {
		return m, nil
	}
	var input []byte
	switch msg.Type {
	case tea.KeyRunes:
		input = []byte(string(msg.Runes))
	case tea.KeyEnter:
		input = []byte("\r")
	case tea.KeyBackspace:
		input = []byte{0x7f}
	case tea.KeyTab:
		input = []byte("\t")
	case tea.KeySpace:
		input = []byte(" ")
	case tea.KeyUp:
		input = []byte("\x1b[A")
	case tea.KeyDown:
		input = []byte("\x1b[B")
	case tea.KeyRight:
		input = []byte("\x1b[C")
	case tea.KeyLeft:
		input = []byte("\x1b[D")
	case tea.KeyCtrlC:
		input = []byte{0x03}
	case tea.KeyCtrlD:
		input = []byte{0x04}
	}
	if len(input) > 0 {
		pane.term.SendInput(input)
	}
	return m, nil
}

// cycleTab moves the active tab by delta.
func (m *Model) cycleTab(delta int) {
	n := len(m.view.Tabs)
	if n == 0 {
		return
	}
	next := (m.view.Active + delta + n) % n
	m.opts.Store.Activate(next)
}

// closeActive closes the active tab; session tabs go through the lifecycle
// controller so the backing session is stopped and deleted.
func (m *Model) closeActive() {
	tab, ok := m.view.ActiveTab()
	if !ok {
		return
	}
	if tab.Kind != domain.TabSession {
		m.opts.Store.CloseTab(m.view.Active)
		return
	}
	sess, ok := m.view.Session(tab.SessionID)
	if !ok {
		m.opts.Store.CloseTab(m.view.Active)
		return
	}
	m.disposePane(tab.SessionID)
	go func() {
		if err := m.opts.Controller.CloseSession(context.Background(), sess); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("close session failed")
		}
		m.opts.Reconciler.Invalidate()
	}()
}

// syncPanes creates stream clients for session tabs that gained one and
// disposes clients whose tab is gone.
func (m *Model) syncPanes() {
	open := make(map[string]bool)
	for _, tab := range m.view.Tabs {
		if tab.Kind == domain.TabSession {
			open[tab.SessionID] = true
		}
	}

	for id := range m.panes {
		if !open[id] {
			m.disposePane(id)
		}
	}

	workspace.TrackSessions(m.cells, m.view.Sessions)

	for id := range open {
		if _, exists := m.panes[id]; exists {
			continue
		}
		sess, ok := m.view.Session(id)
		if !ok {
			continue
		}
		m.openPane(sess)
	}
}

func (m *Model) openPane(sess domain.Session) {
	cell, ok := m.cells[sess.ID]
	if !ok {
		cell = workspace.NewStatusCell(sess.Status)
		m.cells[sess.ID] = cell
	}

	pane := &sessionPane{cell: cell}
	pane.chat = m.opts.NewChat(sess.ID, cell.Get, m.notifyStream)

	if sess.TerminalTarget != "" && m.opts.NewTerm != nil {
		surface := NewTermSurface(m.opts.Scrollback)
		surface.SetOnChange(m.notifyStream)
		m.sizeSurface(surface)
		pane.surface = surface
		pane.term = m.opts.NewTerm(sess.TerminalTarget, sess.ID, surface, cell.Get, m.notifyStream)
	}

	m.panes[sess.ID] = pane
	log.Debug().Str("session_id", sess.ID).Msg("session pane opened")
}

func (m *Model) disposePane(id string) {
	pane, ok := m.panes[id]
	if !ok {
		return
	}
	delete(m.panes, id)
	delete(m.cells, id)
	if pane.chat != nil {
		pane.chat.Dispose()
	}
	if pane.term != nil {
		pane.term.Dispose()
	}
}

func (m *Model) activePane() *sessionPane {
	tab, ok := m.view.ActiveTab()
	if !ok || tab.Kind != domain.TabSession {
		return nil
	}
	return m.panes[tab.SessionID]
}

// shutdown disposes every pane before the program exits.
func (m *Model) shutdown() {
	for id := range m.panes {
		m.disposePane(id)
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// layout recomputes pane geometry after a resize.
func (m *Model) layout() {
	bodyH := m.bodyHeight()
	m.chatView.Width = m.width
	m.chatView.Height = bodyH
	m.input.Width = m.width - 4

	for _, pane := range m.panes {
		if pane.surface != nil {
			m.sizeSurface(pane.surface)
			if pane.term != nil {
				cols, rows := pane.surface.Size()
				pane.term.Resize(cols, rows)
			}
		}
	}
	m.renderChat()
}

func (m *Model) sizeSurface(s *TermSurface) {
	cols := m.width
	rows := m.bodyHeight()
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	s.SetSize(cols, rows)
}

// bodyHeight is the height left for the chat/terminal pane: total minus the
// tab bar, input line with its border, and status bar.
func (m *Model) bodyHeight() int {
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

// renderChat rebuilds the chat viewport content for the active pane.
func (m *Model) renderChat() {
	pane := m.activePane()
	if pane == nil || pane.chat == nil {
		m.chatView.SetContent(dimStyle.Render("no session selected — ctrl+n starts one"))
		return
	}

	atBottom := m.chatView.AtBottom()
	var b strings.Builder
	for _, msg := range pane.chat.Messages() {
		b.WriteString(renderMessage(msg))
		b.WriteByte('\n')
	}
	if errMsg := pane.chat.Err(); errMsg != "" {
		b.WriteString(errorStyle.Render(errMsg))
		b.WriteByte('\n')
	}
	m.chatView.SetContent(b.String())
	if atBottom {
		m.chatView.GotoBottom()
	}
}

func renderMessage(msg domain.ChatMessage) string {
	role := chatRoleAgent
	label := msg.Role
	if label == "" {
		label = msg.Kind
	}
	if msg.Role == "user" {
		role = chatRoleUser
	}
	text := msg.Text
	if msg.Kind == "tool_call" && text == "" {
		text = dimStyle.Render("[tool call]")
	}
	return role.Render(label+":") + " " + text
}

// View renders the full screen.
func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var body string
	pane := m.activePane()
	if m.focus == focusTerminal && pane != nil && pane.surface != nil {
		body = pane.surface.View(m.bodyHeight())
	} else {
		body = m.chatView.View()
	}

	sections := []string{
		m.renderTabBar(),
		lipgloss.NewStyle().Height(m.bodyHeight()).Render(body),
		inputStyle.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderTabBar() string {
	if len(m.view.Tabs) == 0 {
		return tabStyle.Render("no tabs")
	}
	parts := make([]string, 0, len(m.view.Tabs))
	for i, tab := range m.view.Tabs {
		label := tabLabel(tab, m.view)
		if i == m.view.Active {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func tabLabel(tab domain.Tab, v workspace.View) string {
	switch tab.Kind {
	case domain.TabSession:
		if sess, ok := v.Session(tab.SessionID); ok {
			return statusDot(string(sess.Status)) + " " + shortID(sess.ID)
		}
		return shortID(tab.SessionID)
	case domain.TabNewSession:
		return "+ new"
	case domain.TabEditor:
		return "edit " + tab.Path
	case domain.TabDiff:
		return "diff " + tab.File
	default:
		return string(tab.Kind)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m *Model) renderStatusBar() string {
	left := fmt.Sprintf("crewdeck %s", m.opts.Version)
	scope := ""
	if !m.view.Scope.IsZero() {
		scope = fmt.Sprintf("%s/%s", m.view.Scope.Kind, m.view.Scope.ID)
	}

	conn := ""
	if pane := m.activePane(); pane != nil && pane.chat != nil {
		conn = connBadge(string(pane.chat.ConnState()))
	}

	focus := "chat"
	if m.focus == focusTerminal {
		focus = "terminal"
	}

	parts := []string{left}
	if scope != "" {
		parts = append(parts, scope)
	}
	if conn != "" {
		parts = append(parts, conn)
	}
	parts = append(parts, "focus:"+focus, "ctrl+t switch  ctrl+n new  ctrl+w close  ctrl+c quit")
	return statusBarStyle.Width(m.width).Render(strings.Join(parts, "  │  "))
}
