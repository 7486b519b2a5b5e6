//go:build windows

package clipboard

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Injector pastes text into the focused window with Ctrl+V.
type Injector struct{}

// Type puts text on the clipboard, sends Ctrl+V and then restores what the
// clipboard held before.
func (Injector) Type(ctx context.Context, text string) error {
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	restore := func() { _ = clipboard.WriteAll(orig) }

	if err := pause(ctx, 80*time.Millisecond); err != nil {
		restore()
		return err
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		restore()
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		restore()
		return err
	}

	// The target reads the clipboard asynchronously after the keystroke.
	_ = pause(ctx, 120*time.Millisecond)
	restore()
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewInjector returns the platform text injector.
func NewInjector() *Injector {
	return &Injector{}
}
