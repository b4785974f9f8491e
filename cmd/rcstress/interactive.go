package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rcstring/internal/stress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const barWidth = 40

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type interactiveModel struct {
	err      error
	ctx      context.Context
	cancel   context.CancelFunc
	updates  chan progressMsg
	backend  string
	report   *stress.Report
	spinner  spinner.Model
	cfg      stress.Config
	done     int
	total    int
	finished bool
}

type progressMsg struct {
	done  int
	total int
}

type finishedMsg struct {
	err    error
	report stress.Report
}

func newInteractiveModel(backend string, cfg stress.Config) *interactiveModel {
	ctx, cancel := context.WithCancel(context.Background())
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = barStyle
	return &interactiveModel{
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan progressMsg, 1),
		backend: backend,
		spinner: s,
		cfg:     cfg,
		total:   cfg.Rounds,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runStress, m.waitProgress)
}

func (m *interactiveModel) runStress() tea.Msg {
	rep, err := stress.Run(m.ctx, m.cfg, func(done, total int) {
		select {
		case m.updates <- progressMsg{done: done, total: total}:
		case <-m.ctx.Done():
		default:
			// The view only needs the latest count.
		}
	})
	return finishedMsg{report: rep, err: err}
}

func (m *interactiveModel) waitProgress() tea.Msg {
	select {
	case msg := <-m.updates:
		return msg
	case <-m.ctx.Done():
		return nil
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.cancel()
			return m, tea.Quit
		}

	case progressMsg:
		m.done = msg.done
		m.total = msg.total
		return m, m.waitProgress

	case finishedMsg:
		m.finished = true
		m.err = msg.err
		m.report = &msg.report
		m.done = msg.report.Rounds
		m.cancel()
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rcstress"))
	b.WriteString(" ")
	b.WriteString(m.backend)
	b.WriteString("\n\n")

	if !m.finished {
		b.WriteString(m.spinner.View())
		b.WriteString(fmt.Sprintf(" round %d/%d ", m.done, m.total))
	} else {
		b.WriteString(fmt.Sprintf("  round %d/%d ", m.done, m.total))
	}
	b.WriteString(renderBar(m.done, m.total))
	b.WriteString("\n")

	if m.finished {
		b.WriteString(formatReport(*m.report))
		b.WriteString("\n")
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case !m.report.Ok():
			b.WriteString(errorStyle.Render("Leak detected"))
		default:
			b.WriteString(resultStyle.Render("All strings disposed, no leaks"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(keys.Quit.Help().Key + " " + keys.Quit.Help().Desc))
	return b.String()
}

func renderBar(done, total int) string {
	filled := barWidth
	if total > 0 {
		filled = done * barWidth / total
	}
	return barStyle.Render(strings.Repeat("█", filled)) +
		helpStyle.Render(strings.Repeat("░", barWidth-filled))
}

func runInteractive(backend string, cfg stress.Config) error {
	m := newInteractiveModel(backend, cfg)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
