package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// busy messages keyed by the op passed to model.submit
var busyMessages = map[string]string{
	"insert": "Adding session...",
	"delete": "Deleting session...",
	"load":   "Refreshing sessions...",
}

const defaultBusyMessage = "Syncing with health data..."

// Spinner cycles through braille frames while the controller is busy
type Spinner struct {
	frame int
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{}
}

// Next advances the spinner to the next frame
func (s *Spinner) Next() {
	s.frame = (s.frame + 1) % len(spinnerFrames)
}

// View returns the current spinner frame
func (s *Spinner) View() string {
	return spinnerFrames[s.frame]
}

// LoadingIndicator shows the spinner next to what the last queued
// command is doing
type LoadingIndicator struct {
	spinner *Spinner
	message string
}

// NewLoadingIndicator creates an indicator showing the default message
func NewLoadingIndicator() *LoadingIndicator {
	return &LoadingIndicator{
		spinner: NewSpinner(),
		message: defaultBusyMessage,
	}
}

// ForOp switches the message to the one for op
func (l *LoadingIndicator) ForOp(op string) {
	if msg, ok := busyMessages[op]; ok {
		l.message = msg
		return
	}
	l.message = defaultBusyMessage
}

// Tick advances the spinner animation
func (l *LoadingIndicator) Tick() {
	l.spinner.Next()
}

// View renders the loading indicator
func (l *LoadingIndicator) View() string {
	return spinnerStyle.Render(l.spinner.View()) + " " + busyStyle.Render(l.message)
}
