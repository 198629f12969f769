package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console writes one styled line per notification. Colours are dropped
// automatically when w is not a terminal.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[Level]lipgloss.Style
	icons  map[Level]string
}

// NewConsole creates a Console sink writing to w.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w: w,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
			LevelSuccess: r.NewStyle().Foreground(lipgloss.Color("#98C379")).Bold(true),
			LevelError:   r.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true),
			LevelPending: r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		},
		icons: map[Level]string{
			LevelInfo:    "i",
			LevelSuccess: "✓",
			LevelError:   "✗",
			LevelPending: "…",
		},
	}
}

func (c *Console) write(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.styles[level].Render(c.icons[level]+" "+msg))
}

func (c *Console) Info(msg string)    { c.write(LevelInfo, msg) }
func (c *Console) Success(msg string) { c.write(LevelSuccess, msg) }
func (c *Console) Error(msg string)   { c.write(LevelError, msg) }

// Track prints the pending line immediately and the outcome on resolution.
func (c *Console) Track(pending string) Tracker {
	c.write(LevelPending, pending)
	return NewTracker(c.write)
}
