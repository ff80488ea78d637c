package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/session"
)

// RunPracticeTUI runs the timer until the session is completed or the user
// leaves. It returns the completed session, or nil if left open.
func RunPracticeTUI(v *session.View, agentName, title string, complete CompleteFunc) (*domain.Session, error) {
	p := tea.NewProgram(NewPracticeModel(v, agentName, title, complete), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(PracticeModel); ok {
		return m.Result(), nil
	}
	return nil, nil
}
