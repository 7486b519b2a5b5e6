// Package pipeline runs the record, transcribe, enrich and deliver session.
//
// A single goroutine (Session.Run) owns the conversation, status and active
// mode. Hotkeys, the control socket and the chat window only enqueue
// commands; remote calls run on a worker goroutine and post their result back
// to the loop.
package pipeline

import (
	"context"
	"errors"

	"echoflow/internal/chat"
	"echoflow/internal/delivery"
	"echoflow/internal/history"
	"echoflow/internal/record"
	"echoflow/internal/settings"
)

// Status is the session state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
	StatusEnriching    Status = "enriching"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Busy reports whether a session is in progress.
func (s Status) Busy() bool {
	return s == StatusRecording || s == StatusTranscribing || s == StatusEnriching
}

var (
	// ErrBusy is returned for commands that are not allowed while a session
	// is in progress.
	ErrBusy = errors.New("session in progress")
	// ErrNoAudio is reported when a recording produced no data.
	ErrNoAudio = errors.New("no audio captured")
	// ErrNotFound is returned when a history id does not exist.
	ErrNotFound = errors.New("history item not found")
	// ErrStopped is returned when the loop is no longer running.
	ErrStopped = errors.New("session loop stopped")
)

// Capture is the microphone.
type Capture interface {
	Start(ctx context.Context) error
	Stop() (record.Clip, error)
	Cancel() error
}

// Transcriber turns a clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip record.Clip, credential string) (string, error)
}

// Enricher rewrites the conversation under a system prompt.
type Enricher interface {
	Complete(ctx context.Context, conv []chat.Message, credential, systemPrompt string) (string, error)
}

// Deliverer puts the final reply on the clipboard or into the focused app.
type Deliverer interface {
	Deliver(ctx context.Context, text string, directType bool) *delivery.Report
}

// Window is the chat window host.
type Window interface {
	Show() error
	Hide() error
	Focus() error
	Visible() bool
}

// History archives finished conversations.
type History interface {
	Record(msgs []chat.Message, mode chat.Mode) (history.Item, error)
	Select(id string) (history.Item, bool)
}

// Settings supplies the snapshot taken at session start and persists the
// active mode.
type Settings interface {
	Snapshot() settings.Settings
	SetMode(m chat.Mode) error
}

// State is a consistent copy of what the loop owns.
type State struct {
	Status   Status
	Mode     chat.Mode
	Messages []chat.Message
	// Err is the failure that put the session into StatusError, or the last
	// start failure.
	Err error
}

// Event is published after every state change.
type Event struct {
	State
	// Delivery is set on the event that completes a session.
	Delivery *delivery.Report
}

// EventSink receives events on the loop goroutine. Implementations must not
// block for long and must not call back into the session synchronously.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

// Publish calls f.
func (f SinkFunc) Publish(e Event) { f(e) }
