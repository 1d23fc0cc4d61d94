package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	live "github.com/lachanso/safebuddy/core"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/muesli/reflow/wordwrap"
)

const visibleTurns = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	modelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	partialStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var barGlyphs = []rune("▁▂▃▄▅▆▇█")

type (
	stateMsg   live.StateChange
	levelsMsg  []float64
	partialMsg live.PartialTranscript
	turnMsg    conversations.Turn
	errMsg     struct{ err error }
)

type model struct {
	session *live.Session
	spinner spinner.Model

	state   live.State
	levels  []float64
	partial string
	turns   []conversations.Turn
	err     error
	width   int
}

func newModel(session *live.Session) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{
		session: session,
		spinner: s,
		state:   session.CurrentState(),
		levels:  make([]float64, audio.DefaultLevelBands),
		width:   80,
	}
}

// Session calls deliver notifications through program.Send, so they must not
// run on the update loop.
func startCmd(session *live.Session) tea.Cmd {
	return func() tea.Msg {
		if err := session.Start(context.Background()); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func stopCmd(session *live.Session) tea.Cmd {
	return func() tea.Msg {
		session.Stop()
		return nil
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Sequence(stopCmd(m.session), tea.Quit)
		case "enter", "s":
			if !m.state.IsLive() {
				m.err = nil
				return m, startCmd(m.session)
			}
		case "x":
			return m, stopCmd(m.session)
		case "r":
			if m.err != nil {
				m.err = nil
				return m, startCmd(m.session)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.To
		if msg.To == live.StateConnecting {
			m.partial = ""
		}
		if !msg.To.IsLive() {
			m.levels = make([]float64, audio.DefaultLevelBands)
		}

	case levelsMsg:
		m.levels = msg

	case partialMsg:
		if msg.Speaker == conversations.SpeakerUser {
			m.partial = msg.Text
		}

	case turnMsg:
		m.turns = append(m.turns, conversations.Turn(msg))
		if msg.Speaker == conversations.SpeakerUser {
			m.partial = ""
		}

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	width := max(m.width-2, 20)

	b.WriteString(titleStyle.Render("🛡️  Trợ lý AI Lá Chắn Số"))
	b.WriteString("\n\n")

	status := string(m.state)
	if m.state == live.StateConnecting {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(stateStyle.Render("state: " + status))
	b.WriteString("\n")
	b.WriteString(barStyle.Render(renderBars(m.levels)))
	b.WriteString("\n\n")

	start := max(len(m.turns)-visibleTurns, 0)
	for _, turn := range m.turns[start:] {
		label := modelStyle.Render("Safe Buddy: ")
		if turn.Speaker == conversations.SpeakerUser {
			label = userStyle.Render("Bạn: ")
		}
		b.WriteString(label)
		b.WriteString(wordwrap.String(turn.Text, width))
		b.WriteString("\n")
	}
	if m.partial != "" {
		b.WriteString(partialStyle.Render(wordwrap.String(strings.TrimSpace(m.partial)+" …", width)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(wordwrap.String(fmt.Sprintf("⚠️  %v", m.err), width)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r: retry"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter/s: start • x: stop • q: quit"))
	return b.String()
}

func renderBars(levels []float64) string {
	bars := make([]rune, 0, len(levels))
	for _, level := range levels {
		index := int(math.Round(level * float64(len(barGlyphs)-1)))
		index = min(max(index, 0), len(barGlyphs)-1)
		bars = append(bars, barGlyphs[index])
	}
	return string(bars)
}
