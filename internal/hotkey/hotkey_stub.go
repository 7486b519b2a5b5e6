//go:build !windows

package hotkey

import "github.com/charmbracelet/log"

// NewHost returns a host that rejects every registration. Drive the app
// through the control socket instead (echoflow ctl toggle).
func NewHost(hook bool, logger *log.Logger) (Host, error) {
	return unsupportedHost{}, nil
}

type unsupportedHost struct{}

func (unsupportedHost) Register(Combo, func()) error { return ErrNotSupported }

func (unsupportedHost) Unregister(Combo) error { return ErrNotSupported }
