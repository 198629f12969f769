package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/remediate/internal/notify"
)

// One Dark palette
var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")
	ColorRed       = lipgloss.Color("#E06C75")
	ColorGreen     = lipgloss.Color("#98C379")
	ColorYellow    = lipgloss.Color("#E5C07B")
	ColorBlue      = lipgloss.Color("#61AFEF")
	ColorMagenta   = lipgloss.Color("#C678DD")
	ColorBorder    = lipgloss.Color("#3F4451")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().Foreground(ColorFgMuted)
	TextStyle  = lipgloss.NewStyle().Foreground(ColorFgPrimary)
	NameStyle  = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1)

	ToastStyles = map[notify.Level]lipgloss.Style{
		notify.LevelInfo:    lipgloss.NewStyle().Foreground(ColorBlue),
		notify.LevelSuccess: lipgloss.NewStyle().Foreground(ColorGreen).Bold(true),
		notify.LevelError:   lipgloss.NewStyle().Foreground(ColorRed).Bold(true),
		notify.LevelPending: lipgloss.NewStyle().Foreground(ColorYellow),
	}
)

// phaseStyles colour the stage badges.
var phaseStyles = map[string]lipgloss.Style{
	"idle":      lipgloss.NewStyle().Foreground(ColorFgMuted),
	"loading":   lipgloss.NewStyle().Foreground(ColorYellow),
	"succeeded": lipgloss.NewStyle().Foreground(ColorGreen),
	"failed":    lipgloss.NewStyle().Foreground(ColorRed),
}
