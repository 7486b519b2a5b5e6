// Package clipboard talks to the system clipboard and, where supported,
// injects text into the focused application.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrNotSupported is returned by Type on platforms without text injection.
var ErrNotSupported = errors.New("text injection not supported on this platform")

// System is the real clipboard.
type System struct{}

// Write replaces the clipboard contents.
func (System) Write(text string) error {
	return clipboard.WriteAll(text)
}

// Read returns the clipboard contents.
func (System) Read() (string, error) {
	return clipboard.ReadAll()
}

// Available reports whether a clipboard backend exists (on Linux this needs
// xclip, xsel or wl-clipboard).
func Available() bool {
	return !clipboard.Unsupported
}
