package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/health-sessions/pkg/models"
)

// Message types for async state delivery
type (
	// StateMsg carries a new list state published by the controller
	StateMsg struct {
		State models.ListState
	}

	// watchClosedMsg is sent once the controller has been torn down
	watchClosedMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// waitForStateCmd blocks on the controller's watch channel off the UI loop
func waitForStateCmd(updates <-chan models.ListState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return watchClosedMsg{}
		}
		return StateMsg{State: state}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
