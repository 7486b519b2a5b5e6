// Package hotkey binds global key combinations to the two app actions.
package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Purpose names what a binding does.
type Purpose string

const (
	PurposeToggleApp       Purpose = "toggle-app-visibility"
	PurposeToggleRecording Purpose = "toggle-recording"
)

// Purposes lists every purpose.
func Purposes() []Purpose {
	return []Purpose{PurposeToggleApp, PurposeToggleRecording}
}

// ParsePurpose accepts the full purpose name or the short aliases "app" and
// "rec".
func ParsePurpose(s string) (Purpose, error) {
	switch s {
	case string(PurposeToggleApp), "app":
		return PurposeToggleApp, nil
	case string(PurposeToggleRecording), "rec", "record":
		return PurposeToggleRecording, nil
	}
	return "", fmt.Errorf("unknown hotkey purpose %q", s)
}

// DefaultCombo is the combo used until the user saves another one.
func DefaultCombo(p Purpose) string {
	if p == PurposeToggleRecording {
		return "Alt+Shift+R"
	}
	return "Alt+Shift+S"
}

// Binding associates a purpose with a combo string.
type Binding struct {
	Purpose Purpose `json:"purpose"`
	Combo   string  `json:"combo"`
}

var (
	// ErrNotSupported is returned by hosts that cannot grab global keys.
	ErrNotSupported = errors.New("global hotkeys not supported on this platform")
	// ErrConflict is returned when a combo is already bound to the other
	// purpose.
	ErrConflict = errors.New("hotkey already bound")
)

// Host registers combos with the operating system.
type Host interface {
	Register(c Combo, fn func()) error
	Unregister(c Combo) error
}

type bound struct {
	combo Combo
	fn    func()
}

// Registry tracks one combo per purpose. Rebinding replaces the previous
// registration atomically with respect to other Bind calls.
type Registry struct {
	mu     sync.Mutex
	host   Host
	bound  map[Purpose]bound
	logger *log.Logger
}

// NewRegistry creates a registry backed by host.
func NewRegistry(host Host, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{host: host, bound: make(map[Purpose]bound), logger: logger}
}

// Bind makes combo trigger fn for purpose. Any previous combo for purpose is
// unregistered exactly once and the new one registered exactly once. When the
// new registration fails the previous combo is restored.
func (r *Registry) Bind(purpose Purpose, combo string, fn func()) error {
	c, err := Parse(combo)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for p, b := range r.bound {
		if p != purpose && b.combo == c {
			return fmt.Errorf("%s: %w to %s", c, ErrConflict, p)
		}
	}

	old, had := r.bound[purpose]
	if had {
		if err := r.host.Unregister(old.combo); err != nil {
			r.logger.Warn("unregister failed", "combo", old.combo, "err", err)
		}
		delete(r.bound, purpose)
	}

	if err := r.host.Register(c, fn); err != nil {
		if had {
			if rerr := r.host.Register(old.combo, old.fn); rerr != nil {
				r.logger.Error("restore previous hotkey failed", "combo", old.combo, "err", rerr)
			} else {
				r.bound[purpose] = old
			}
		}
		return fmt.Errorf("register %s: %w", c, err)
	}

	r.bound[purpose] = bound{combo: c, fn: fn}
	r.logger.Debug("bound", "purpose", purpose, "combo", c)
	return nil
}

// Unbind removes the registration for purpose, if any.
func (r *Registry) Unbind(purpose Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bound[purpose]
	if !ok {
		return nil
	}
	delete(r.bound, purpose)
	return r.host.Unregister(b.combo)
}

// Bindings returns the active bindings sorted by purpose.
func (r *Registry) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, 0, len(r.bound))
	for p, b := range r.bound {
		out = append(out, Binding{Purpose: p, Combo: b.combo.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out
}

// Close unregisters everything.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for p, b := range r.bound {
		if err := r.host.Unregister(b.combo); err != nil {
			errs = append(errs, err)
		}
		delete(r.bound, p)
	}
	return errors.Join(errs...)
}
