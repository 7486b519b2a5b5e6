package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"echoflow/internal/chat"
	"echoflow/internal/delivery"
	"echoflow/internal/history"
	"echoflow/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	mu    sync.Mutex
	cmds  []pipeline.Command
	state pipeline.State
	err   error
}

func (f *fakeController) Exec(_ context.Context, cmd pipeline.Command) (pipeline.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.state, f.err
}

type fakeHistory []history.Item

func (f fakeHistory) List() []history.Item { return f }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, k string) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(key(k))
	var msg tea.Msg
	if cmd != nil {
		msg = cmd()
	}
	return updated.(Model), msg
}

func TestKeysSendCommands(t *testing.T) {
	ctrl := &fakeController{}
	m := New(Options{Controller: ctrl})

	tests := []struct {
		key  string
		want pipeline.Command
	}{
		{"r", pipeline.ToggleRecording{}},
		{"x", pipeline.CancelRecording{}},
		{"m", pipeline.SwitchMode{Mode: chat.ModeMeeting}},
		{"c", pipeline.ClearChat{}},
		{"w", pipeline.ToggleVisibility{}},
	}
	for _, tt := range tests {
		var msg tea.Msg
		m, msg = press(t, m, tt.key)
		if done, ok := msg.(CommandDoneMsg); !ok || done.Err != nil {
			t.Fatalf("key %q produced %#v", tt.key, msg)
		}
		last := ctrl.cmds[len(ctrl.cmds)-1]
		if last != tt.want {
			t.Fatalf("key %q sent %#v, want %#v", tt.key, last, tt.want)
		}
	}
}

func TestStoredModeShownAtStart(t *testing.T) {
	ctrl := &fakeController{}
	m := New(Options{Controller: ctrl, Mode: chat.ModeMeeting})
	if !strings.Contains(m.View(), chat.ModeMeeting.Label()) {
		t.Fatalf("view should show the stored mode:\n%s", m.View())
	}
	_, _ = press(t, m, "m")
	if got := ctrl.cmds[len(ctrl.cmds)-1]; got != (pipeline.SwitchMode{Mode: chat.ModeMeeting.Next()}) {
		t.Fatalf("m sent %#v", got)
	}
}

func TestInitLoadsSessionState(t *testing.T) {
	ctrl := &fakeController{state: pipeline.State{
		Status:   pipeline.StatusDone,
		Mode:     chat.ModeIdea,
		Messages: []chat.Message{{Role: chat.RoleAssistant, Content: "Concept: TeaBot"}},
	}}
	m := New(Options{Controller: ctrl})
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init() should request the session state")
	}
	msg := cmd()
	if got := ctrl.cmds[0]; got != (pipeline.GetState{}) {
		t.Fatalf("Init sent %#v", got)
	}
	updated, _ := m.Update(msg)
	m = updated.(Model)
	if m.mode != chat.ModeIdea || !strings.Contains(m.View(), "Concept: TeaBot") {
		t.Fatalf("state not applied, mode %s view:\n%s", m.mode, m.View())
	}

	if New(Options{}).Init() != nil {
		t.Fatal("Init() without a controller should do nothing")
	}
}

func TestQuitKey(t *testing.T) {
	m := New(Options{Controller: &fakeController{}})
	_, msg := press(t, m, "q")
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Fatalf("q produced %#v, want QuitMsg", msg)
	}
}

func TestEventUpdatesView(t *testing.T) {
	m := New(Options{})
	updated, _ := m.Update(EventMsg{Event: pipeline.Event{State: pipeline.State{
		Status: pipeline.StatusDone,
		Mode:   chat.ModeIdea,
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "robot that makes tea"},
			{Role: chat.RoleAssistant, Content: "Concept: TeaBot"},
		},
	}}})
	m = updated.(Model)
	view := m.View()
	for _, want := range []string{"Spark Idea", "robot that makes tea", "Concept: TeaBot", "Done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestFallbackDeliveryShowsNotice(t *testing.T) {
	m := New(Options{})
	updated, cmd := m.Update(EventMsg{Event: pipeline.Event{
		State:    pipeline.State{Status: pipeline.StatusDone},
		Delivery: &delivery.Report{Method: delivery.MethodClipboard, FellBack: true},
	}})
	m = updated.(Model)
	if cmd == nil || !strings.Contains(m.View(), "copied to clipboard") {
		t.Fatalf("expected fallback notice, view:\n%s", m.View())
	}
	updated, _ = m.Update(ClearNoticeMsg{seq: m.noticeSeq})
	if updated.(Model).notice != "" {
		t.Fatal("notice should clear")
	}
}

func TestHiddenWindowCollapses(t *testing.T) {
	m := New(Options{AppHotkey: "Alt+Shift+S"})
	updated, _ := m.Update(VisibilityMsg{Visible: false})
	m = updated.(Model)
	view := m.View()
	if strings.Count(view, "\n") != 0 || !strings.Contains(view, "Alt+Shift+S to show") {
		t.Fatalf("collapsed view = %q", view)
	}
	updated, _ = m.Update(FocusMsg{})
	if !updated.(Model).visible {
		t.Fatal("focus should expand the window")
	}
}

func TestBusyErrorNotice(t *testing.T) {
	ctrl := &fakeController{err: pipeline.ErrBusy}
	m := New(Options{Controller: ctrl})
	m, msg := press(t, m, "m")
	updated, _ := m.Update(msg)
	if !strings.Contains(updated.(Model).notice, "Busy") {
		t.Fatalf("notice = %q", updated.(Model).notice)
	}

	updated, _ = m.Update(CommandDoneMsg{Err: errors.New("boom")})
	if updated.(Model).notice != "boom" {
		t.Fatalf("notice = %q", updated.(Model).notice)
	}
}

func TestHistoryReplay(t *testing.T) {
	ctrl := &fakeController{}
	items := fakeHistory{
		{ID: "b", Timestamp: 2, Mode: chat.ModeAsk, Messages: []chat.Message{{Role: chat.RoleUser, Content: "why"}}},
		{ID: "a", Timestamp: 1, Mode: chat.ModeMeeting, Text: "legacy notes"},
	}
	m := New(Options{Controller: ctrl, History: items})

	m, msg := press(t, m, "h")
	updated, _ := m.Update(msg)
	m = updated.(Model)
	if !m.historyOpen || !strings.Contains(m.View(), "legacy notes") {
		t.Fatalf("history list not shown:\n%s", m.View())
	}

	m, _ = press(t, m, "down")
	m, msg = press(t, m, "enter")
	if m.historyOpen {
		t.Fatal("enter should close the list")
	}
	if _, ok := msg.(CommandDoneMsg); !ok {
		t.Fatalf("enter produced %#v", msg)
	}
	if got := ctrl.cmds[len(ctrl.cmds)-1]; got != (pipeline.SelectHistory{ID: "a"}) {
		t.Fatalf("sent %#v", got)
	}
}

func TestExportKeys(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{ExportDir: dir})

	updated, _ := m.Update(key("e"))
	if updated.(Model).notice != "Nothing to export" {
		t.Fatalf("notice = %q", updated.(Model).notice)
	}

	m.messages = []chat.Message{{Role: chat.RoleUser, Content: "hi"}}
	_, msg := press(t, m, "e")
	done, ok := msg.(ExportDoneMsg)
	if !ok || done.Err != nil {
		t.Fatalf("export produced %#v", msg)
	}
	if filepath.Dir(done.Path) != dir || filepath.Ext(done.Path) != ".md" {
		t.Fatalf("path = %s", done.Path)
	}
	if b, _ := os.ReadFile(done.Path); string(b) != "**USER**: hi" {
		t.Fatalf("contents = %q", b)
	}
}

func TestWindowTracksVisibility(t *testing.T) {
	w := NewWindow()
	if !w.Visible() {
		t.Fatal("new window should be visible")
	}
	_ = w.Hide()
	if w.Visible() {
		t.Fatal("Hide() should collapse")
	}
	_ = w.Show()
	_ = w.Focus()
	if !w.Visible() {
		t.Fatal("Show() should expand")
	}
	w.Publish(pipeline.Event{})
}
