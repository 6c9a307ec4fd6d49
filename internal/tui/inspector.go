// Package tui is a read-only bubbletea inspector over a stored
// OptimizationRecord run directory, grounded on the teacher's
// internal/tui.NewInteractiveApp menu/detail state machine and lipgloss
// palette: a list of runs, and a loss-curve sparkline plus an iteration
// stepper once one is opened.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/trajopt/internal/record"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type inspectorState int

const (
	stateRunList inspectorState = iota
	stateRunDetail
)

type model struct {
	store *record.Store

	state  inspectorState
	cursor int
	runs   []record.RunMetadata

	selected   record.RunMetadata
	iterations []record.IterationPoint
	iterCursor int

	width, height int
	err           error
}

// NewInspector builds the inspector app over every run Store currently
// holds.
func NewInspector(store *record.Store) *model {
	runs, _ := store.List()
	return &model{
		store:  store,
		runs:   runs,
		width:  80,
		height: 24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.state {
		case stateRunList:
			return m.listKey(msg)
		case stateRunDetail:
			return m.detailKey(msg)
		}
	}
	return m, nil
}

func (m model) listKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.runs)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.cursor < len(m.runs) {
			m.selected = m.runs[m.cursor]
			m.iterations, m.err = m.store.LoadIterations(m.selected.ID)
			m.iterCursor = len(m.iterations) - 1
			m.state = stateRunDetail
		}
	}
	return m, nil
}

func (m model) detailKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "escape":
		m.state = stateRunList
	case "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		if m.iterCursor > 0 {
			m.iterCursor--
		}
	case "right", "l":
		if m.iterCursor < len(m.iterations)-1 {
			m.iterCursor++
		}
	case "home":
		m.iterCursor = 0
	case "end":
		m.iterCursor = len(m.iterations) - 1
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateRunDetail:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m model) viewList() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("        " + cyan.Render("t r a j o p t") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	if len(m.runs) == 0 {
		b.WriteString(dim.Render("      no recorded runs") + "\n")
	}
	for i, r := range m.runs {
		line := fmt.Sprintf("%-20s %6d iters  loss=%.6g  %s", r.Scenario, r.Iterations, r.BestLoss, r.Outcome)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(line) + "\n")
		} else {
			b.WriteString("        " + dim.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + dim.Render("      ↑↓ select   enter open   q quit") + "\n")
	return b.String()
}

func (m model) viewDetail() string {
	var b strings.Builder
	b.WriteString("\n      " + cyan.Render(m.selected.Scenario) + "  " + dim.Render(m.selected.ID) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 40)) + "\n\n")

	if m.err != nil {
		b.WriteString("      " + yellow.Render(m.err.Error()) + "\n")
		b.WriteString("\n" + dim.Render("      q back") + "\n")
		return b.String()
	}

	losses := make([]float64, len(m.iterations))
	for i, p := range m.iterations {
		losses[i] = p.Loss
	}
	if len(losses) > 1 {
		graph := asciigraph.Plot(losses, asciigraph.Height(10), asciigraph.Width(m.graphWidth()))
		for _, line := range strings.Split(graph, "\n") {
			b.WriteString("      " + line + "\n")
		}
	}

	b.WriteString("\n")
	if m.iterCursor >= 0 && m.iterCursor < len(m.iterations) {
		p := m.iterations[m.iterCursor]
		b.WriteString(fmt.Sprintf("      iteration %s   loss %s\n",
			magenta.Render(fmt.Sprintf("%d/%d", p.Index, len(m.iterations)-1)),
			white.Render(fmt.Sprintf("%.8g", p.Loss))))
	}

	b.WriteString("\n" + dim.Render("      ←→ step   home/end   q back") + "\n")
	return b.String()
}

func (m model) graphWidth() int {
	w := m.width - 14
	if w < 20 {
		w = 20
	}
	return w
}

// Run launches the inspector as a full-screen bubbletea program.
func Run(store *record.Store) error {
	p := tea.NewProgram(NewInspector(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
