package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/health-sessions/internal/healthdata"
	"github.com/strrl/health-sessions/internal/notify"
	"github.com/strrl/health-sessions/internal/sessions"
	"github.com/strrl/health-sessions/pkg/models"
)

// fakeController records the commands the screen issues
type fakeController struct {
	state     models.ListState
	updates   chan models.ListState
	activated int
	loads     int
	inserts   int
	deletes   []string
}

func newFakeController(records ...models.SessionRecord) *fakeController {
	return &fakeController{
		state:   models.ListState{Records: records},
		updates: make(chan models.ListState, 1),
	}
}

func (f *fakeController) State() models.ListState { return f.state }
func (f *fakeController) Watch() <-chan models.ListState { return f.updates }
func (f *fakeController) Activate() error { f.activated++; return nil }
func (f *fakeController) LoadSessions() error { f.loads++; return nil }
func (f *fakeController) InsertSession() error { f.inserts++; return nil }
func (f *fakeController) DeleteSession(uid string) error { f.deletes = append(f.deletes, uid); return nil }

type countingNotifier struct {
	count int
	last  error
}

func (c *countingNotifier) Notify(_ context.Context, err error) {
	c.count++
	c.last = err
}

func testRecords() []models.SessionRecord {
	end := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return []models.SessionRecord{
		{UID: "uid-run", Name: "Run", Start: end.Add(-30 * time.Minute), End: end},
		{UID: "uid-swim", Name: "Swim", Start: end.Add(-time.Hour), End: end},
	}
}

func newTestModel(t *testing.T, ctl *fakeController, opts Options) model {
	t.Helper()
	m, err := initialModel(context.Background(), ctl, opts)
	if err != nil {
		t.Fatalf("initialModel: %v", err)
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(model)
}

func press(m model, key string) model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	return updated.(model)
}

func send(m model, state models.ListState) model {
	updated, _ := m.Update(StateMsg{State: state})
	return updated.(model)
}

// TestModelInitialization tests the initial model setup
func TestModelInitialization(t *testing.T) {
	ctl := newFakeController(testRecords()...)
	m, err := initialModel(context.Background(), ctl, Options{})
	if err != nil {
		t.Fatalf("initialModel: %v", err)
	}

	if len(m.state.Records) != 2 {
		t.Errorf("Expected 2 records from controller state, got %d", len(m.state.Records))
	}
	if m.cursor != 0 {
		t.Error("Cursor should start on the add session row")
	}
	if m.mode != listView {
		t.Error("Initial mode should be list view")
	}

	if cmd := m.Init(); cmd == nil {
		t.Error("Init should return commands")
	}
	if ctl.activated != 1 {
		t.Errorf("Init should activate the controller once, got %d", ctl.activated)
	}
}

// TestFailureNotifiedOncePerOccurrence tests the banner and notifier run
// once per failure token, however often the state is re-delivered
func TestFailureNotifiedOncePerOccurrence(t *testing.T) {
	ctl := newFakeController()
	notifier := &countingNotifier{}
	m := newTestModel(t, ctl, Options{Notifier: notifier})

	cause := errors.New("connection lost")
	failed := models.ListState{Outcome: models.Failure(cause)}

	m = send(m, failed)
	m = send(m, failed)
	m = send(m, failed)
	if notifier.count != 1 {
		t.Fatalf("Expected 1 notification, got %d", notifier.count)
	}
	if m.banner.err != cause {
		t.Error("Banner should show the failure")
	}

	// unrelated state change, same outcome
	failed.Busy = true
	m = send(m, failed)
	if notifier.count != 1 {
		t.Errorf("Re-observing the same failure should not notify, got %d", notifier.count)
	}

	m = send(m, models.ListState{Outcome: models.Failure(cause)})
	if notifier.count != 2 {
		t.Errorf("A new occurrence should notify again, got %d", notifier.count)
	}

	m = send(m, models.ListState{Outcome: models.Success()})
	if notifier.count != 2 {
		t.Error("Success should never notify")
	}
}

// TestFailureBeforeScreenReadsIsNotified tests that a failure followed by a
// success, both published before the screen reads, is still notified once
func TestFailureBeforeScreenReadsIsNotified(t *testing.T) {
	ctl := sessions.NewController(healthdata.NewMemoryService())
	t.Cleanup(ctl.Close)

	notifier := &countingNotifier{}
	m, err := initialModel(context.Background(), ctl, Options{Notifier: notifier})
	if err != nil {
		t.Fatalf("initialModel: %v", err)
	}

	if err := ctl.DeleteSession("stale-uid"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := ctl.InsertSession(); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	ctl.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctl.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for done := false; !done; {
		select {
		case state := <-m.updates:
			m = send(m, state)
		default:
			done = true
		}
	}

	if notifier.count != 1 {
		t.Errorf("Expected exactly one notification, got %d", notifier.count)
	}
	if !errors.Is(notifier.last, sessions.ErrUnknownSession) {
		t.Errorf("Expected the unknown session failure, got %v", notifier.last)
	}
	if len(m.state.Records) != 1 || m.state.Outcome.Kind != models.OutcomeSuccess {
		t.Errorf("Expected the final state to show the inserted session, got %+v", m.state)
	}
}

// TestRebuiltScreenSharesTokens tests that a screen rebuilt over the same
// token store does not notify an already acknowledged failure
func TestRebuiltScreenSharesTokens(t *testing.T) {
	tokens := notify.NewMemoryTokenStore()
	failed := models.ListState{Outcome: models.Failure(errors.New("boom"))}

	first := &countingNotifier{}
	m := newTestModel(t, newFakeController(), Options{Tokens: tokens, Notifier: first})
	send(m, failed)

	second := &countingNotifier{}
	m = newTestModel(t, newFakeController(), Options{Tokens: tokens, Notifier: second})
	send(m, failed)

	if first.count != 1 || second.count != 0 {
		t.Errorf("Expected notifications 1 and 0, got %d and %d", first.count, second.count)
	}
}

// TestAddSession tests both ways of adding a session
func TestAddSession(t *testing.T) {
	ctl := newFakeController()
	m := newTestModel(t, ctl, Options{})

	m = press(m, "a")
	m = press(m, "enter") // cursor is on the add row
	if ctl.inserts != 2 {
		t.Errorf("Expected 2 inserts, got %d", ctl.inserts)
	}
}

// TestDeleteSelectedSession tests delete forwards the selected uid
func TestDeleteSelectedSession(t *testing.T) {
	ctl := newFakeController(testRecords()...)
	m := newTestModel(t, ctl, Options{})

	m = press(m, "d")
	if len(ctl.deletes) != 0 {
		t.Error("Delete on the add row should do nothing")
	}

	m = press(m, "down")
	m = press(m, "down")
	m = press(m, "d")
	if len(ctl.deletes) != 1 || ctl.deletes[0] != "uid-swim" {
		t.Errorf("Expected delete of uid-swim, got %v", ctl.deletes)
	}
}

// TestRefresh tests the refresh key
func TestRefresh(t *testing.T) {
	ctl := newFakeController()
	m := newTestModel(t, ctl, Options{})
	press(m, "r")
	if ctl.loads != 1 {
		t.Errorf("Expected 1 load, got %d", ctl.loads)
	}
}

// TestOpenDetails tests the details navigation callback
func TestOpenDetails(t *testing.T) {
	var opened []string
	ctl := newFakeController(testRecords()...)
	m := newTestModel(t, ctl, Options{OnDetails: func(uid string) { opened = append(opened, uid) }})

	m = press(m, "down")
	m = press(m, "enter")

	if m.mode != detailView {
		t.Fatal("Enter on a record should open details")
	}
	if len(opened) != 1 || opened[0] != "uid-run" {
		t.Errorf("Expected details callback for uid-run, got %v", opened)
	}
	if !strings.Contains(m.renderDetails(), "30m0s") {
		t.Error("Details should show the duration")
	}

	m = press(m, "esc")
	if m.mode != listView {
		t.Error("Esc should return to the list")
	}
}

// TestDetailsClosedWhenRecordRemoved tests the screen leaves details once
// the record is gone
func TestDetailsClosedWhenRecordRemoved(t *testing.T) {
	records := testRecords()
	ctl := newFakeController(records...)
	m := newTestModel(t, ctl, Options{})

	m = press(m, "down")
	m = press(m, "enter")
	m = press(m, "d")
	if len(ctl.deletes) != 1 || ctl.deletes[0] != "uid-run" {
		t.Fatalf("Delete in details should target the open record, got %v", ctl.deletes)
	}

	m = send(m, models.ListState{Records: records[1:], Outcome: models.Success()})
	if m.mode != listView || m.detail != nil {
		t.Error("Details should close when the record disappears")
	}
	if m.cursor > len(m.state.Records) {
		t.Error("Cursor should be clamped to the list")
	}
}

// TestEscDismissesBanner tests the banner can be cleared
func TestEscDismissesBanner(t *testing.T) {
	m := newTestModel(t, newFakeController(), Options{})
	m = send(m, models.ListState{Outcome: models.Failure(errors.New("boom"))})

	if !strings.Contains(m.View(), "boom") {
		t.Error("View should show the error banner")
	}

	m = press(m, "esc")
	if strings.Contains(m.View(), "boom") {
		t.Error("Esc should dismiss the banner")
	}
}

// TestViewRendersRecords tests the list rendering
func TestViewRendersRecords(t *testing.T) {
	m := newTestModel(t, newFakeController(testRecords()...), Options{})
	view := m.View()

	for _, want := range []string{"Add session", "Run", "Swim", "Health Sessions (2)"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

// TestWatchClosedQuits tests the screen exits after controller teardown
func TestWatchClosedQuits(t *testing.T) {
	m := newTestModel(t, newFakeController(), Options{})
	_, cmd := m.Update(watchClosedMsg{})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

// TestWaitForStateCmd tests delivery of published states
func TestWaitForStateCmd(t *testing.T) {
	updates := make(chan models.ListState, 1)
	updates <- models.ListState{Version: 7}

	msg := waitForStateCmd(updates)()
	state, ok := msg.(StateMsg)
	if !ok || state.State.Version != 7 {
		t.Errorf("Expected StateMsg with version 7, got %#v", msg)
	}

	close(updates)
	if _, ok := waitForStateCmd(updates)().(watchClosedMsg); !ok {
		t.Error("Closed channel should yield watchClosedMsg")
	}
}

// TestSpinnerAnimation tests spinner tick updates
func TestSpinnerAnimation(t *testing.T) {
	spinner := NewSpinner()
	initialFrame := spinner.View()

	spinner.Next()
	if spinner.View() == initialFrame {
		t.Error("Spinner frame should change after Next()")
	}

	for i := 0; i < 7; i++ {
		spinner.Next()
	}
	if spinner.View() != initialFrame {
		t.Error("Spinner should return to initial frame after full rotation")
	}
}

// TestBusyFooterShowsIndicator tests the loading indicator while busy
func TestBusyFooterShowsIndicator(t *testing.T) {
	m := newTestModel(t, newFakeController(), Options{})
	if strings.Contains(m.renderFooter(), "Syncing") {
		t.Error("Idle footer should not show the indicator")
	}

	m = send(m, models.ListState{Busy: true})
	if !strings.Contains(m.renderFooter(), "Syncing") {
		t.Error("Busy footer should show the indicator")
	}
}

// TestIndicatorFollowsLastCommand tests the busy message for each action
func TestIndicatorFollowsLastCommand(t *testing.T) {
	m := newTestModel(t, newFakeController(testRecords()...), Options{})

	m = press(m, "a")
	m = send(m, models.ListState{Records: testRecords(), Busy: true})
	if !strings.Contains(m.renderFooter(), "Adding session") {
		t.Errorf("Expected add message in footer, got %q", m.renderFooter())
	}

	m = press(m, "r")
	if !strings.Contains(m.renderFooter(), "Refreshing sessions") {
		t.Errorf("Expected refresh message in footer, got %q", m.renderFooter())
	}
}

// TestWrapText tests text wrapping functionality
func TestWrapText(t *testing.T) {
	text := "This is a long text that should be wrapped at the specified width"

	wrapped := wrapText(text, 20)
	for _, line := range wrapped {
		if len(line) > 20 {
			t.Errorf("Line exceeds max width: %s", line)
		}
	}

	if len(wrapText(text, 0)) != 1 {
		t.Error("Width 0 should return single line")
	}

	wrapped = wrapText("", 20)
	if len(wrapped) != 1 || wrapped[0] != "" {
		t.Error("Empty text should return single empty line")
	}
}

// BenchmarkRenderSessions benchmarks list rendering
func BenchmarkRenderSessions(b *testing.B) {
	ctl := newFakeController(testRecords()...)
	m, _ := initialModel(context.Background(), ctl, Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.renderSessions()
	}
}
