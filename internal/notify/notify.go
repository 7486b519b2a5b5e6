// Package notify shows desktop notifications for finished and failed
// sessions.
package notify

import (
	"errors"
	"fmt"

	"echoflow/internal/delivery"
	"echoflow/internal/pipeline"
	"echoflow/internal/record"
	"echoflow/internal/remote"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
)

// Title is shown on every notification.
const Title = "EchoFlow"

// Sink turns pipeline events into notifications: one when a reply is
// delivered and one per new failure.
type Sink struct {
	notify  func(title, message string) error
	logger  *log.Logger
	lastErr string
}

// New creates a sink that uses beeep.
func New(logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{
		notify: func(title, message string) error { return beeep.Notify(title, message, "") },
		logger: logger,
	}
}

// Publish implements pipeline.EventSink.
func (s *Sink) Publish(e pipeline.Event) {
	msg := s.message(e)
	if msg == "" {
		return
	}
	if err := s.notify(Title, msg); err != nil {
		s.logger.Debug("notification failed", "err", err)
	}
}

func (s *Sink) message(e pipeline.Event) string {
	errText := ""
	if e.Err != nil {
		errText = e.Err.Error()
	}
	prev := s.lastErr
	s.lastErr = errText

	switch {
	case e.Status == pipeline.StatusDone && e.Delivery != nil:
		if e.Delivery.Method == delivery.MethodDirectType {
			return "Typed into the focused app"
		}
		return "Copied to clipboard"
	case errText != "" && errText != prev:
		return Message(e.Err)
	}
	return ""
}

// Message is a short description of err for a notification body.
func Message(err error) string {
	var re *remote.RequestError
	var te *remote.TransportError
	var de *record.DeviceError
	switch {
	case err == nil:
		return "Failed"
	case errors.As(err, &re):
		return fmt.Sprintf("%s failed (HTTP %d)", re.Op, re.StatusCode)
	case errors.As(err, &te):
		return te.Op + " failed: network error"
	case errors.As(err, &de):
		return "Microphone unavailable"
	default:
		return "Failed: " + err.Error()
	}
}
