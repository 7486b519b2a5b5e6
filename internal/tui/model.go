// Package tui is the terminal chat window.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echoflow/internal/chat"
	"echoflow/internal/export"
	"echoflow/internal/history"
	"echoflow/internal/pipeline"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the session the window drives.
type Controller interface {
	Exec(ctx context.Context, cmd pipeline.Command) (pipeline.State, error)
}

// HistorySource lists archived conversations.
type HistorySource interface {
	List() []history.Item
}

// Options configure the model.
type Options struct {
	Controller Controller
	History    HistorySource
	Window     *Window
	ExportDir  string
	// Mode is shown until the first state arrives from the session.
	Mode chat.Mode
	// AppHotkey and RecHotkey are shown in hints.
	AppHotkey string
	RecHotkey string
}

// Model is the root bubbletea model for the chat window.
type Model struct {
	opts Options

	status   pipeline.Status
	mode     chat.Mode
	messages []chat.Message
	err      error
	visible  bool

	historyOpen  bool
	historyItems []history.Item
	selected     int

	notice    string
	noticeSeq int

	width  int
	height int
}

// New creates a model in the idle state.
func New(opts Options) Model {
	mode := opts.Mode
	if !mode.Valid() {
		mode = chat.ModeClean
	}
	return Model{
		opts:    opts,
		status:  pipeline.StatusIdle,
		mode:    mode,
		visible: true,
	}
}

// Init implements tea.Model. It asks the session for its state, since events
// published before the program started never reach the window.
func (m Model) Init() tea.Cmd {
	if m.opts.Controller == nil {
		return nil
	}
	return syncCmd(m.opts.Controller)
}

func syncCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := c.Exec(ctx, pipeline.GetState{})
		if err != nil {
			return CommandDoneMsg{Err: err}
		}
		return EventMsg{Event: pipeline.Event{State: st}}
	}
}

func execCmd(c Controller, cmd pipeline.Command) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := c.Exec(ctx, cmd)
		return CommandDoneMsg{Err: err}
	}
}

func loadHistoryCmd(src HistorySource) tea.Cmd {
	return func() tea.Msg {
		return HistoryLoadedMsg{Items: src.List()}
	}
}

func exportCmd(format, dir string, doc export.Document) tea.Cmd {
	return func() tea.Msg {
		e, err := export.New(format)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.WriteFile(e, dir, doc)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func clearNoticeCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{seq: seq}
	})
}

func (m *Model) setNotice(s string) tea.Cmd {
	m.noticeSeq++
	m.notice = s
	return clearNoticeCmd(m.noticeSeq)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		e := msg.Event
		m.status = e.Status
		m.mode = e.Mode
		m.messages = e.Messages
		m.err = e.Err
		if e.Delivery != nil && e.Delivery.FellBack {
			return m, m.setNotice("Direct typing failed, copied to clipboard instead")
		}
		return m, nil

	case VisibilityMsg:
		m.visible = msg.Visible
		return m, nil

	case FocusMsg:
		m.visible = true
		return m, nil

	case CommandDoneMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, pipeline.ErrBusy) {
				return m, m.setNotice("Busy: wait for the current session to finish")
			}
			return m, m.setNotice(msg.Err.Error())
		}
		return m, nil

	case HistoryLoadedMsg:
		m.historyItems = msg.Items
		m.historyOpen = true
		m.selected = 0
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, m.setNotice("Export failed: " + msg.Err.Error())
		}
		return m, m.setNotice("Exported to " + msg.Path)

	case ClearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC || key == KeyQuit {
		return m, tea.Quit
	}

	if m.historyOpen {
		switch key {
		case KeyEsc, KeyHistory:
			m.historyOpen = false
		case KeyUp, KeyK:
			if m.selected > 0 {
				m.selected--
			}
		case KeyDown, KeyJ:
			if m.selected < len(m.historyItems)-1 {
				m.selected++
			}
		case KeyEnter:
			if len(m.historyItems) == 0 {
				return m, nil
			}
			m.historyOpen = false
			id := m.historyItems[m.selected].ID
			return m, execCmd(m.opts.Controller, pipeline.SelectHistory{ID: id})
		}
		return m, nil
	}

	switch key {
	case KeyRecord:
		return m, execCmd(m.opts.Controller, pipeline.ToggleRecording{})
	case KeyCancel:
		return m, execCmd(m.opts.Controller, pipeline.CancelRecording{})
	case KeyMode:
		return m, execCmd(m.opts.Controller, pipeline.SwitchMode{Mode: m.mode.Next()})
	case KeyClear:
		return m, execCmd(m.opts.Controller, pipeline.ClearChat{})
	case KeyHideWindow:
		return m, execCmd(m.opts.Controller, pipeline.ToggleVisibility{})
	case KeyHistory:
		if m.opts.History == nil {
			return m, nil
		}
		return m, loadHistoryCmd(m.opts.History)
	case KeyExportMD, KeyExportPDF:
		if len(m.messages) == 0 {
			return m, m.setNotice("Nothing to export")
		}
		format := "md"
		if key == KeyExportPDF {
			format = "pdf"
		}
		doc := export.Document{Mode: m.mode, Exported: time.Now(), Messages: m.messages}
		return m, exportCmd(format, m.opts.ExportDir, doc)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.visible {
		return m.renderCollapsed()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.divider())
	b.WriteString("\n")
	if m.historyOpen {
		b.WriteString(m.renderHistory())
	} else {
		b.WriteString(m.renderMessages())
	}
	b.WriteString(m.divider())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(NoticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m Model) divider() string {
	return DividerStyle.Render(strings.Repeat("─", m.contentWidth()))
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("EchoFlow")
	mode := ModeStyle.Render(m.mode.Label())
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", mode, "  ", m.renderStatus())
}

func statusText(s pipeline.Status) string {
	switch s {
	case pipeline.StatusRecording:
		return "● Listening..."
	case pipeline.StatusTranscribing:
		return "◌ Transcribing..."
	case pipeline.StatusEnriching:
		return "◌ AI is thinking..."
	case pipeline.StatusDone:
		return "✓ Done"
	case pipeline.StatusError:
		return "✗ Error"
	default:
		return "○ Ready"
	}
}

func (m Model) renderStatus() string {
	text := statusText(m.status)
	switch m.status {
	case pipeline.StatusRecording:
		return RecordingStyle.Render(text)
	case pipeline.StatusTranscribing, pipeline.StatusEnriching:
		return WorkingStyle.Render(text)
	case pipeline.StatusDone:
		return DoneStyle.Render(text)
	case pipeline.StatusError:
		return ErrorStyle.Render(text)
	default:
		return StatusStyle.Render(text)
	}
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		hint := "Press r to record"
		if m.opts.RecHotkey != "" {
			hint += " (or " + m.opts.RecHotkey + " from anywhere)"
		}
		return DimStyle.Render(hint) + "\n"
	}
	body := lipgloss.NewStyle().Width(m.contentWidth() - 2).PaddingLeft(2)
	var b strings.Builder
	for _, msg := range m.messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(UserLabelStyle.Render("You"))
		case chat.RoleAssistant:
			b.WriteString(AssistantLabelStyle.Render(m.mode.Label()))
		default:
			b.WriteString(DimStyle.Render(string(msg.Role)))
		}
		b.WriteString("\n")
		b.WriteString(body.Render(msg.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) renderHistory() string {
	if len(m.historyItems) == 0 {
		return DimStyle.Render("No history yet") + "\n"
	}
	var b strings.Builder
	for i, it := range m.historyItems {
		preview := ""
		if conv := it.Conversation(); len(conv) > 0 {
			preview = strings.ReplaceAll(conv[0].Content, "\n", " ")
		}
		line := fmt.Sprintf("%s  %-13s %s", it.Time().Format("Jan 02 15:04"), it.Mode.Label(), truncate(preview, m.contentWidth()-34))
		if i == m.selected {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"r", "record"}, {"x", "cancel"}, {"m", "mode"}, {"c", "clear"},
		{"h", "history"}, {"e", "md"}, {"p", "pdf"}, {"w", "hide"}, {"q", "quit"},
	}
	if m.historyOpen {
		keys = []struct{ key, desc string }{{"↑↓", "select"}, {"enter", "open"}, {"esc", "close"}}
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = FooterKeyStyle.Render(k.key) + " " + FooterDescStyle.Render(k.desc)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderCollapsed() string {
	line := fmt.Sprintf("EchoFlow · %s · %s", m.mode.Label(), statusText(m.status))
	if m.opts.AppHotkey != "" {
		line += " · " + m.opts.AppHotkey + " to show"
	}
	return CollapsedStyle.Render(line)
}

func truncate(s string, width int) string {
	if width <= 3 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
