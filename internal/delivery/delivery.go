// Package delivery puts the final text where the user wants it: on the
// clipboard, or typed straight into the focused application.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultSettleDelay is how long the window stays hidden before typing so
// focus can return to the previous application.
const DefaultSettleDelay = 500 * time.Millisecond

// Method is how text was delivered.
type Method string

const (
	MethodClipboard  Method = "clipboard"
	MethodDirectType Method = "direct-type"
)

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(text string) error
}

// Typist injects text into whatever application has focus.
type Typist interface {
	Type(ctx context.Context, text string) error
}

// Window is the part of the chat window delivery needs.
type Window interface {
	Show() error
	Hide() error
	Focus() error
}

// DeliveryError wraps a host failure during delivery.
type DeliveryError struct {
	Op  string // "clipboard", "hide", "type", "show"
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery %s failed: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Report describes what Deliver did.
type Report struct {
	Method   Method
	FellBack bool
	// Err is the last failure. When FellBack is set and Err is nil the
	// clipboard fallback succeeded.
	Err error
}

// Dispatcher routes text to the clipboard or the typist.
type Dispatcher struct {
	clipboard Clipboard
	typist    Typist
	window    Window
	settle    time.Duration
	logger    *log.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a dispatcher. typist and window may be nil, in which case
// direct typing always falls back to the clipboard.
func New(clipboard Clipboard, typist Typist, window Window, settle time.Duration, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if settle < 0 {
		settle = 0
	}
	return &Dispatcher{
		clipboard: clipboard,
		typist:    typist,
		window:    window,
		settle:    settle,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver never fails: direct-type problems fall back to the clipboard and a
// failing clipboard is only logged. The report says what happened.
func (d *Dispatcher) Deliver(ctx context.Context, text string, directType bool) *Report {
	if !directType {
		r := &Report{Method: MethodClipboard}
		if err := d.clipboard.Write(text); err != nil {
			r.Err = &DeliveryError{Op: "clipboard", Err: err}
			d.logger.Error("clipboard write failed", "err", err)
		}
		return r
	}

	err := d.typeIntoFocused(ctx, text)
	if err == nil {
		return &Report{Method: MethodDirectType}
	}

	d.logger.Warn("direct type failed, copying to clipboard", "err", err)
	r := &Report{Method: MethodClipboard, FellBack: true}
	if cerr := d.clipboard.Write(text); cerr != nil {
		r.Err = &DeliveryError{Op: "clipboard", Err: cerr}
		d.logger.Error("clipboard fallback failed", "err", cerr)
	}
	if d.window != nil {
		if serr := d.window.Show(); serr != nil {
			d.logger.Debug("show after failed type", "err", serr)
		}
	}
	return r
}

func (d *Dispatcher) typeIntoFocused(ctx context.Context, text string) error {
	if d.typist == nil {
		return &DeliveryError{Op: "type", Err: fmt.Errorf("no text injection on this platform")}
	}
	if d.window != nil {
		if err := d.window.Hide(); err != nil {
			return &DeliveryError{Op: "hide", Err: err}
		}
	}
	if err := d.sleep(ctx, d.settle); err != nil {
		return &DeliveryError{Op: "type", Err: err}
	}
	if err := d.typist.Type(ctx, text); err != nil {
		return &DeliveryError{Op: "type", Err: err}
	}
	if d.window != nil {
		if err := d.window.Show(); err != nil {
			return &DeliveryError{Op: "show", Err: err}
		}
		if err := d.window.Focus(); err != nil {
			return &DeliveryError{Op: "show", Err: err}
		}
	}
	return nil
}
