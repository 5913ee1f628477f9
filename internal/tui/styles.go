package tui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
const (
	colorBg      = lipgloss.Color("#1a1b26")
	colorSurface = lipgloss.Color("#24283b")
	colorBorder  = lipgloss.Color("#414868")
	colorText    = lipgloss.Color("#c0caf5")
	colorDim     = lipgloss.Color("#787fa0")
	colorAccent  = lipgloss.Color("#7aa2f7")
	colorGreen   = lipgloss.Color("#9ece6a")
	colorYellow  = lipgloss.Color("#e0af68")
	colorRed     = lipgloss.Color("#f7768e")
	colorCyan    = lipgloss.Color("#7dcfff")
)

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Background(colorSurface).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Foreground(colorBg).
			Background(colorAccent).
			Bold(true).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSurface).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	chatRoleUser = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	chatRoleAgent = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorBorder)
)

// statusDot renders a one-glyph session status indicator.
func statusDot(status string) string {
	switch status {
	case "running":
		return lipgloss.NewStyle().Foreground(colorGreen).Render("●")
	case "waiting_input":
		return lipgloss.NewStyle().Foreground(colorYellow).Render("◐")
	case "error":
		return lipgloss.NewStyle().Foreground(colorRed).Render("✕")
	case "completed":
		return lipgloss.NewStyle().Foreground(colorDim).Render("✓")
	default:
		return lipgloss.NewStyle().Foreground(colorDim).Render("○")
	}
}

// connBadge renders the stream connection state for the status bar.
func connBadge(state string) string {
	switch state {
	case "open":
		return lipgloss.NewStyle().Foreground(colorGreen).Render("connected")
	case "connecting", "retrying":
		return lipgloss.NewStyle().Foreground(colorYellow).Render(state)
	case "exhausted":
		return errorStyle.Render("disconnected")
	case "terminal":
		return dimStyle.Render("ended")
	default:
		return dimStyle.Render(state)
	}
}
