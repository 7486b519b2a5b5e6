package pipeline

import "echoflow/internal/chat"

// Command is something the loop can be asked to do.
type Command interface {
	command()
}

type (
	// StartRecording begins a session from idle, done or error.
	StartRecording struct{}
	// StopRecording finishes the capture and submits the clip.
	StopRecording struct{}
	// ToggleRecording starts or stops depending on status.
	ToggleRecording struct{}
	// CancelRecording discards the capture and returns to idle.
	CancelRecording struct{}
	// ToggleVisibility hides a visible window or shows and focuses a hidden
	// one.
	ToggleVisibility struct{}
	// SwitchMode archives a non-empty conversation and changes the active
	// mode.
	SwitchMode struct{ Mode chat.Mode }
	// SelectHistory replays an archived conversation.
	SelectHistory struct{ ID string }
	// ClearChat empties the conversation.
	ClearChat struct{}
	// GetState only reads the current state.
	GetState struct{}
)

func (StartRecording) command()   {}
func (StopRecording) command()    {}
func (ToggleRecording) command()  {}
func (CancelRecording) command()  {}
func (ToggleVisibility) command() {}
func (SwitchMode) command()       {}
func (SelectHistory) command()    {}
func (ClearChat) command()        {}
func (GetState) command()         {}
