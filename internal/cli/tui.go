package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/urbanweave/streetscope/pkg/una"
)

// =============================================================================
// ProgressModel - Per-origin analysis progress bar
// =============================================================================

// originProgressMsg carries completed/total origin counts from the analysis
// workers.
type originProgressMsg struct {
	done  int
	total int
}

// analysisDoneMsg signals that the analysis finished.
type analysisDoneMsg struct {
	err error
}

// ProgressModel is the bubbletea model showing origin processing progress.
type ProgressModel struct {
	Label  string
	Done   int
	Total  int
	Width  int
	Err    error
	cancel context.CancelFunc
}

// newProgressModel creates a progress model for the given operation label.
func newProgressModel(label string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Label: label, Width: 40, cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			m.Err = context.Canceled
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width - 30
		if m.Width < 10 {
			m.Width = 10
		}
	case originProgressMsg:
		m.Done = msg.done
		m.Total = msg.total
	case analysisDoneMsg:
		m.Err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Label))
	b.WriteString("\n")

	filled := 0
	if m.Total > 0 {
		filled = m.Done * m.Width / m.Total
	}
	if filled > m.Width {
		filled = m.Width
	}
	bar := styleBarDone.Render(strings.Repeat("█", filled)) +
		styleBarRest.Render(strings.Repeat("░", m.Width-filled))

	b.WriteString(fmt.Sprintf("  %s %s\n", bar,
		StyleDim.Render(fmt.Sprintf("%d/%d origins", m.Done, m.Total))))
	b.WriteString(StyleDim.Render("  q to cancel"))
	b.WriteString("\n")

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// runWithProgress runs fn while rendering a progress bar on stderr. The
// progress callback handed to fn is safe to call from worker goroutines.
// Cancelling the bar (q, ctrl+c) cancels the context passed to fn.
func runWithProgress(ctx context.Context, label string, fn func(ctx context.Context, progress una.Progress) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, cancel), tea.WithOutput(os.Stderr))

	go func() {
		err := fn(ctx, func(done, total int) {
			p.Send(originProgressMsg{done: done, total: total})
		})
		p.Send(analysisDoneMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ProgressModel); ok && m.Err != nil {
		return m.Err
	}
	return nil
}
