// Package tui renders the terminal practice timer.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/session"
)

// CompleteFunc persists the view's elapsed time.
type CompleteFunc func(v *session.View) (*domain.Session, error)

type keyMap struct {
	Pause    key.Binding
	Complete key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Complete, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "pause/resume"),
	),
	Complete: key.NewBinding(
		key.WithKeys("c", "enter"),
		key.WithHelp("c/enter", "complete"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "leave open"),
	),
}

// PracticeModel drives a session view from the terminal.
type PracticeModel struct {
	view      *session.View
	agentName string
	title     string
	complete  CompleteFunc
	help      help.Model
	width     int

	elapsed    int
	status     domain.Status
	completing bool
	err        error
	result     *domain.Session
}

type tickMsg struct{}

type completedMsg struct {
	sess *domain.Session
	err  error
}

// NewPracticeModel creates the timer model for an open session.
func NewPracticeModel(v *session.View, agentName, title string, complete CompleteFunc) PracticeModel {
	return PracticeModel{
		view:      v,
		agentName: agentName,
		title:     title,
		complete:  complete,
		help:      help.New(),
		elapsed:   v.ElapsedSeconds(),
		status:    v.Status(),
	}
}

// Result returns the completed session, or nil if the user left it open.
func (m PracticeModel) Result() *domain.Session {
	return m.result
}

func tick() tea.Cmd {
	return tea.Tick(session.TickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Init starts the one-second ticker.
func (m PracticeModel) Init() tea.Cmd {
	return tick()
}

// Update handles messages.
func (m PracticeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.elapsed = m.view.ElapsedSeconds()
		m.status = m.view.Status()
		if m.result != nil {
			return m, nil
		}
		return m, tick()

	case completedMsg:
		m.completing = false
		if msg.err != nil {
			m.err = msg.err
			m.status = m.view.Status()
			return m, nil
		}
		m.result = msg.sess
		m.elapsed = msg.sess.DurationSeconds
		m.status = msg.sess.Status
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.completing {
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Pause):
			var err error
			if m.view.Status() == domain.StatusPaused {
				err = m.view.Resume()
			} else {
				err = m.view.Pause()
			}
			m.err = err
			m.status = m.view.Status()
			m.elapsed = m.view.ElapsedSeconds()
			return m, nil
		case key.Matches(msg, keys.Complete):
			m.completing = true
			m.err = nil
			v, complete := m.view, m.complete
			return m, func() tea.Msg {
				sess, err := complete(v)
				return completedMsg{sess: sess, err: err}
			}
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		}
	}
	return m, nil
}

// FormatElapsed renders seconds as H:MM:SS or M:SS.
func FormatElapsed(secs int) string {
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// View renders the timer.
func (m PracticeModel) View() string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true).
		Render("PRACTICING WITH " + m.agentName)
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Render(m.title)

	clockColor := ColorPrimaryText
	statusColor := ColorSuccess
	switch m.status {
	case domain.StatusPaused:
		clockColor, statusColor = ColorWarning, ColorWarning
	case domain.StatusCompleted:
		statusColor = ColorAccentMain
	}
	clock := lipgloss.NewStyle().
		Foreground(lipgloss.Color(clockColor)).
		Bold(true).
		Padding(1, 4).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Render(FormatElapsed(m.elapsed))
	status := lipgloss.NewStyle().
		Foreground(lipgloss.Color(statusColor)).
		Render(string(m.status))

	lines := []string{header, title, clock, status}
	if m.completing {
		lines = append(lines, "saving...")
	}
	if m.err != nil {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Render("error: "+m.err.Error()))
	}
	lines = append(lines, lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Render(m.help.View(keys)))

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
