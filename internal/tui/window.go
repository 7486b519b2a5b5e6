package tui

import (
	"sync"
	"sync/atomic"

	"echoflow/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
)

// Window is the host side of the chat window. The pipeline and delivery use
// it to show, hide and focus; it forwards pipeline events to the program.
// A hidden window collapses to a single status line since a terminal cannot
// really disappear.
type Window struct {
	visible atomic.Bool

	mu      sync.Mutex
	program *tea.Program
}

// NewWindow returns a visible window that is not yet attached to a program.
func NewWindow() *Window {
	w := &Window{}
	w.visible.Store(true)
	return w
}

// Attach connects the window to the running program.
func (w *Window) Attach(p *tea.Program) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.program = p
}

func (w *Window) send(msg tea.Msg) {
	w.mu.Lock()
	p := w.program
	w.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Show expands the window.
func (w *Window) Show() error {
	w.visible.Store(true)
	w.send(VisibilityMsg{Visible: true})
	return nil
}

// Hide collapses the window.
func (w *Window) Hide() error {
	w.visible.Store(false)
	w.send(VisibilityMsg{Visible: false})
	return nil
}

// Focus makes sure the window is expanded. A terminal cannot take focus
// from another application.
func (w *Window) Focus() error {
	w.visible.Store(true)
	w.send(FocusMsg{})
	return nil
}

// Visible reports whether the window is expanded.
func (w *Window) Visible() bool {
	return w.visible.Load()
}

// Publish implements pipeline.EventSink.
func (w *Window) Publish(e pipeline.Event) {
	w.send(EventMsg{Event: e})
}
