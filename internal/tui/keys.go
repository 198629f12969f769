package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the pipeline view.
type KeyMap struct {
	Upload   key.Binding
	Analyze  key.Binding
	Strategy key.Binding
	Refactor key.Binding
	Open     key.Binding
	Clear    key.Binding
	Up       key.Binding
	Down     key.Binding
	Confirm  key.Binding
	Escape   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "analyze"),
		),
		Strategy: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "strategy"),
		),
		Refactor: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refactor"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "choose file"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear file"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp lists the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Upload, k.Analyze, k.Strategy, k.Refactor, k.Clear, k.Quit}
}
