package tui

import (
	"echoflow/internal/history"
	"echoflow/internal/pipeline"
)

// EventMsg wraps a pipeline event.
type EventMsg struct {
	Event pipeline.Event
}

// VisibilityMsg shows or collapses the window.
type VisibilityMsg struct {
	Visible bool
}

// FocusMsg asks the window to draw attention to itself.
type FocusMsg struct{}

// CommandDoneMsg carries the result of a command sent to the session.
type CommandDoneMsg struct {
	Err error
}

// HistoryLoadedMsg carries the archived conversations for the list.
type HistoryLoadedMsg struct {
	Items []history.Item
}

// ExportDoneMsg reports an export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// ClearNoticeMsg removes the transient notice line.
type ClearNoticeMsg struct {
	seq int
}
