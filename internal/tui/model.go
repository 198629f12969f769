// Package tui is the interactive front end: choose a file, then drive each
// pipeline stage with a key press and watch results and toasts update.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/remediate/internal/notify"
	"github.com/lucasnoah/remediate/internal/orchestrator"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/stage"
)

// NoFileMessage is shown when upload is pressed before a file is chosen.
const NoFileMessage = "Please select a file to upload."

// stageDoneMsg reports that a stage future settled.
type stageDoneMsg struct {
	stage pipeline.Stage
}

// pruneMsg expires old toasts.
type pruneMsg time.Time

// Model is the bubbletea model for the pipeline view.
type Model struct {
	ctx   context.Context
	orch  *orchestrator.Orchestrator
	sink  *ToastSink
	keys  KeyMap
	file  string
	ready bool

	choosing bool
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	toasts   []toast

	width  int
	height int
}

// New creates a Model. The orchestrator must have been built with sink so
// that stage notifications reach the view.
func New(ctx context.Context, orch *orchestrator.Orchestrator, sink *ToastSink, file string) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/File.java"
	ti.Prompt = "❯ "
	ti.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorYellow)

	return Model{
		ctx:      ctx,
		orch:     orch,
		sink:     sink,
		keys:     DefaultKeyMap(),
		file:     file,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 10),
	}
}

// Init starts the toast listener, spinner and toast expiry timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sink.listen(), m.spinner.Tick, pruneCmd())
}

func pruneCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return pruneMsg(t)
	})
}

func awaitCmd[T any](st pipeline.Stage, f *stage.Future[T]) tea.Cmd {
	return func() tea.Msg {
		f.Wait()
		return stageDoneMsg{stage: st}
	}
}

// Update handles input and async results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-16, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.refreshResults()
		return m, nil

	case toastMsg:
		m.upsertToast(msg)
		return m, m.sink.listen()

	case pruneMsg:
		m.pruneToasts(time.Time(msg))
		return m, pruneCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stageDoneMsg:
		m.refreshResults()
		if msg.stage == pipeline.StageRefactor {
			m.viewport.GotoTop()
		}
		return m, nil

	case tea.KeyMsg:
		if m.choosing {
			return m.updateChooser(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) updateChooser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if v := strings.TrimSpace(m.input.Value()); v != "" {
			m.file = v
		}
		m.choosing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.choosing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Open):
		m.choosing = true
		m.input.SetValue(m.file)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Clear):
		m.file = ""
		return m, nil

	case key.Matches(msg, m.keys.Upload):
		if m.file == "" {
			m.sink.Error(NoFileMessage)
			return m, nil
		}
		return m, awaitCmd(pipeline.StageUpload, m.orch.Upload(m.ctx, m.file))

	case key.Matches(msg, m.keys.Analyze):
		return m, awaitCmd(pipeline.StageAnalyze, m.orch.Analyze(m.ctx))

	case key.Matches(msg, m.keys.Strategy):
		return m, awaitCmd(pipeline.StageStrategy, m.orch.Strategy(m.ctx))

	case key.Matches(msg, m.keys.Refactor):
		return m, awaitCmd(pipeline.StageRefactor, m.orch.Refactor(m.ctx))

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) upsertToast(msg toastMsg) {
	t := toast{id: msg.id, level: msg.level, text: msg.text, at: msg.at}
	for i := range m.toasts {
		if m.toasts[i].id == msg.id {
			m.toasts[i] = t
			return
		}
	}
	m.toasts = append(m.toasts, t)
}

func (m *Model) pruneToasts(now time.Time) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.level == notify.LevelPending || now.Sub(t.at) < toastTTL {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *Model) refreshResults() {
	m.viewport.SetContent(renderResults(m.orch.Snapshot()))
}

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	snap := m.orch.Snapshot()

	sections := []string{
		HeaderStyle.Render("remediate"),
		m.renderFile(snap),
		m.renderStages(snap),
		PanelStyle.Width(max(m.width-2, 20)).Render(m.viewport.View()),
	}
	if m.choosing {
		sections = append(sections, m.input.View())
	}
	if t := m.renderToasts(); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFile(snap orchestrator.Snapshot) string {
	file := m.file
	if file == "" {
		file = MutedStyle.Render("no file selected (press o)")
	}
	sess := string(snap.Session)
	if sess == "" {
		sess = MutedStyle.Render("none")
	}
	return fmt.Sprintf(" File: %s   Session: %s", file, sess)
}

func (m Model) renderStages(snap orchestrator.Snapshot) string {
	var b strings.Builder
	b.WriteString(PanelTitleStyle.Render("Stages") + "\n")
	for _, st := range pipeline.Stages {
		phase := snap.Phase(st)
		badge := phaseStyles[string(phase)].Render(string(phase))
		if phase == stage.Loading {
			badge = m.spinner.View() + " " + badge
		}
		line := fmt.Sprintf("%-16s %s", st.Label(), badge)
		if e := snap.Err(st); e != nil && phase == stage.Failed {
			line += "  " + ToastStyles[notify.LevelError].Render(e.Message)
		}
		b.WriteString(line + "\n")
	}
	return PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderToasts() string {
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		lines = append(lines, ToastStyles[t.level].Render(" "+t.text))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	parts := make([]string, 0, 8)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return StatusBarStyle.Render(strings.Join(parts, " • "))
}

// renderResults formats every available stage result for the viewport.
func renderResults(snap orchestrator.Snapshot) string {
	var b strings.Builder

	b.WriteString(PanelTitleStyle.Render("Analysis") + "\n")
	if a := snap.Analysis.Result; a != nil {
		if len(a.Antipatterns) == 0 {
			b.WriteString(TextStyle.Render(pipeline.NoAntipatternsMessage) + "\n")
		}
		for _, ap := range a.Antipatterns {
			fmt.Fprintf(&b, "%s %s\n  %s\n", NameStyle.Render(ap.Name), MutedStyle.Render(ap.Location), ap.Description)
		}
	} else {
		b.WriteString(MutedStyle.Render("not run") + "\n")
	}

	b.WriteString("\n" + PanelTitleStyle.Render("Strategy") + "\n")
	if s := snap.Strategy.Result; s != nil {
		if len(s.Refactorings) == 0 {
			b.WriteString(TextStyle.Render(pipeline.NoRefactoringMessage) + "\n")
		}
		for _, r := range s.Refactorings {
			fmt.Fprintf(&b, "%s\n  %s\n  %s\n", NameStyle.Render(r.IssueName), r.Suggestion, MutedStyle.Render(r.Justification))
		}
	} else {
		b.WriteString(MutedStyle.Render("not run") + "\n")
	}

	b.WriteString("\n" + PanelTitleStyle.Render("Refactored code") + "\n")
	if r := snap.Refactor.Result; r != nil {
		b.WriteString(r.Code)
	} else {
		b.WriteString(MutedStyle.Render("not run"))
	}
	return b.String()
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, orch *orchestrator.Orchestrator, sink *ToastSink, file string) error {
	p := tea.NewProgram(New(ctx, orch, sink, file), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
