package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/strrl/health-sessions/internal/healthdata"
	"github.com/strrl/health-sessions/internal/notify"
	"github.com/strrl/health-sessions/pkg/models"
)

// Controller is the part of the session controller the screen drives
type Controller interface {
	State() models.ListState
	Watch() <-chan models.ListState
	Activate() error
	LoadSessions() error
	InsertSession() error
	DeleteSession(uid string) error
}

// Options configures the list screen
type Options struct {
	// Tokens persists the last acknowledged failure; share one store across
	// screens so a rebuilt screen does not repeat a notification.
	Tokens notify.TokenStore
	// Notifier is told about each new failure, after the on-screen banner.
	Notifier notify.Notifier
	// OnDetails is called when the user opens a record's details.
	OnDetails func(uid string)
}

type viewMode int

const (
	listView viewMode = iota
	detailView
)

// banner holds the last notified failure shown on screen
type banner struct {
	err error
}

func (b *banner) Notify(_ context.Context, err error) {
	b.err = err
}

type model struct {
	ctx        context.Context
	controller Controller
	updates    <-chan models.ListState
	ack        *notify.Acknowledger
	banner     *banner
	onDetails  func(uid string)
	state      models.ListState
	cursor     int // row 0 is the "add session" action
	mode       viewMode
	detail     *models.SessionRecord
	indicator  *LoadingIndicator
	viewport   viewport.Model
	ready      bool
	width      int
	height     int
}

func initialModel(ctx context.Context, controller Controller, opts Options) (model, error) {
	b := &banner{}
	ack, err := notify.NewAcknowledger(opts.Tokens, notify.Multi(b, opts.Notifier))
	if err != nil {
		return model{}, err
	}

	return model{
		ctx:        ctx,
		controller: controller,
		updates:    controller.Watch(),
		ack:        ack,
		banner:     b,
		onDetails:  opts.OnDetails,
		state:      controller.State(),
		indicator:  NewLoadingIndicator(),
	}, nil
}

func (m model) Init() tea.Cmd {
	if err := m.controller.Activate(); err != nil {
		slog.Warn("initial load not queued", "error", err)
	}
	return tea.Batch(waitForStateCmd(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.listHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.listHeight()
		}
		m.updateViewport()

	case StateMsg:
		m.applyState(msg.State)
		cmds = append(cmds, waitForStateCmd(m.updates))

	case watchClosedMsg:
		return m, tea.Quit

	case TickMsg:
		if m.state.Busy {
			m.indicator.Tick()
		}
		cmds = append(cmds, tickCmd())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.mode == listView && m.cursor > 0 {
				m.cursor--
				m.updateViewport()
			}

		case "down", "j":
			if m.mode == listView && m.cursor < len(m.state.Records) {
				m.cursor++
				m.updateViewport()
			}

		case "a":
			m.submit("insert", m.controller.InsertSession)

		case "r":
			m.submit("load", m.controller.LoadSessions)

		case "d", "delete":
			if record, ok := m.selectedRecord(); ok {
				m.submit("delete", func() error { return m.controller.DeleteSession(record.UID) })
			}

		case "enter":
			if m.mode == detailView {
				break
			}
			if m.cursor == 0 {
				m.submit("insert", m.controller.InsertSession)
			} else if record, ok := m.selectedRecord(); ok {
				m.openDetails(record)
			}

		case "esc", "backspace":
			if m.mode == detailView {
				m.mode = listView
				m.detail = nil
			} else {
				m.banner.err = nil
			}
			m.updateViewport()
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// applyState takes a published state and runs the once-per-occurrence
// failure notification
func (m *model) applyState(state models.ListState) {
	m.state = state

	if m.cursor > len(state.Records) {
		m.cursor = len(state.Records)
	}
	if m.mode == detailView && m.detail != nil {
		if record, ok := state.Find(m.detail.UID); ok {
			m.detail = &record
		} else {
			m.mode = listView
			m.detail = nil
		}
	}

	if _, err := m.ack.Observe(m.ctx, state.Outcome); err != nil {
		slog.Warn("failed to persist acknowledged failure", "error", err)
	}
	m.updateViewport()
}

func (m *model) submit(op string, fn func() error) {
	m.indicator.ForOp(op)
	if err := fn(); err != nil {
		// a full queue is published as a failure; anything else is logged
		slog.Warn("command not queued", "op", op, "error", err)
	}
}

func (m model) selectedRecord() (models.SessionRecord, bool) {
	if m.mode == detailView && m.detail != nil {
		return *m.detail, true
	}
	i := m.cursor - 1
	if i < 0 || i >= len(m.state.Records) {
		return models.SessionRecord{}, false
	}
	return m.state.Records[i], true
}

func (m *model) openDetails(record models.SessionRecord) {
	m.mode = detailView
	m.detail = &record
	if m.onDetails != nil {
		m.onDetails(record.UID)
	}
	m.updateViewport()
}

func (m model) listHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *model) updateViewport() {
	if !m.ready {
		return
	}
	if m.mode == detailView {
		m.viewport.SetContent(m.renderDetails())
	} else {
		m.viewport.SetContent(m.renderSessions())
	}
}

func (m model) renderSessions() string {
	var s strings.Builder

	addStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursor := "  "
	if m.cursor == 0 {
		cursor = "> "
		addStyle = addStyle.Bold(true)
	}
	s.WriteString(addStyle.Render(cursor+"[ + Add session ]") + "\n\n")

	if len(m.state.Records) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
		s.WriteString(emptyStyle.Render("  No sessions recorded"))
		return s.String()
	}

	for i, record := range m.state.Records {
		cursor := "  "
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
		if i+1 == m.cursor {
			cursor = "> "
			style = style.Foreground(lipgloss.Color("212")).Bold(true)
			idStyle = idStyle.Foreground(lipgloss.Color("245"))
		}

		line := fmt.Sprintf("%s%s - %s  %s",
			cursor,
			record.Start.Format("2006-01-02 15:04"),
			record.End.Format("15:04"),
			record.Name)
		s.WriteString(style.Render(line) + "\n")
		s.WriteString(idStyle.Render("  "+truncate(record.UID, 12)) + "\n")
	}

	return s.String()
}

func (m model) renderDetails() string {
	if m.detail == nil {
		return "No session selected"
	}
	r := m.detail

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")).
		Bold(true)

	var s strings.Builder
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value + "\n")
	}
	row("Name", r.Name)
	row("UID", r.UID)
	row("Start", r.Start.Format("2006-01-02 15:04:05"))
	row("End", r.End.Format("2006-01-02 15:04:05"))
	row("Duration", r.Duration().String())
	return s.String()
}

func (m model) renderBanner() string {
	if m.banner.err == nil {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("231")).
		Background(lipgloss.Color("160"))

	text := "Error: " + m.banner.err.Error()
	if errors.Is(m.banner.err, healthdata.ErrPermission) {
		text += " (permissions requested, try again)"
	}

	width := m.width - 2
	lines := wrapText(text, width)
	for i, line := range lines {
		lines[i] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	parts := []string{m.renderHeader()}
	if b := m.renderBanner(); b != "" {
		parts = append(parts, b)
	}
	parts = append(parts, m.viewport.View(), m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m model) renderHeader() string {
	title := fmt.Sprintf("Health Sessions (%d)", len(m.state.Records))
	if m.mode == detailView && m.detail != nil {
		title = fmt.Sprintf("Health Sessions - %s", m.detail.Name)
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))

	return style.Render(title)
}

func (m model) renderFooter() string {
	info := "↑/↓: navigate • enter: open • a: add • d: delete • r: refresh"
	if m.mode == detailView {
		info = "d: delete • esc: back"
	}
	info += " • q: quit"

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	footer := style.Render(info)
	if m.state.Busy {
		footer = m.indicator.View() + "  " + footer
	}
	return footer
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ShowTUI runs the session list screen until the user quits or the
// controller is torn down
func ShowTUI(ctx context.Context, controller Controller, opts Options) error {
	m, err := initialModel(ctx, controller, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
