//go:build !windows

package clipboard

import "context"

// Injector is unavailable on this platform; Type always fails so delivery
// falls back to the clipboard.
type Injector struct{}

// Type reports ErrNotSupported.
func (Injector) Type(context.Context, string) error {
	return ErrNotSupported
}

// NewInjector returns the platform text injector.
func NewInjector() *Injector {
	return &Injector{}
}
