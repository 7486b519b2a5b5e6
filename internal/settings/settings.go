// Package settings holds the user-facing preferences: credential, mode,
// custom prompt, delivery preference and hotkeys.
package settings

import (
	"strconv"
	"sync"

	"echoflow/internal/chat"
	"echoflow/internal/hotkey"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Persisted keys.
const (
	KeyAPIKey       = "echo-flow-apikey"
	KeyMode         = "echo-flow-mode"
	KeyHotkeyApp    = "echo-flow-hotkey-app"
	KeyHotkeyRec    = "echo-flow-hotkey-rec"
	KeyMagicPaste   = "echo-flow-magicpaste"
	KeyCustomPrompt = "echo-flow-customprompt"
)

// Settings is a value snapshot. The pipeline copies one at session start.
type Settings struct {
	APIKey       string    `json:"api_key" yaml:"api_key"`
	Mode         chat.Mode `json:"mode" yaml:"mode"`
	CustomPrompt string    `json:"custom_prompt" yaml:"custom_prompt"`
	MagicPaste   bool      `json:"magic_paste" yaml:"magic_paste"`
	AppHotkey    string    `json:"hotkey_app" yaml:"hotkey_app"`
	RecHotkey    string    `json:"hotkey_rec" yaml:"hotkey_rec"`
}

// Defaults returns the settings used for anything not stored.
func Defaults() Settings {
	return Settings{
		Mode:         chat.ModeClean,
		CustomPrompt: chat.DefaultCustomPrompt,
		AppHotkey:    hotkey.DefaultCombo(hotkey.PurposeToggleApp),
		RecHotkey:    hotkey.DefaultCombo(hotkey.PurposeToggleRecording),
	}
}

// SystemPrompt resolves the prompt for the active mode.
func (s Settings) SystemPrompt() string {
	return s.Mode.SystemPrompt(s.CustomPrompt)
}

// Hotkey returns the combo stored for purpose.
func (s Settings) Hotkey(p hotkey.Purpose) string {
	if p == hotkey.PurposeToggleRecording {
		return s.RecHotkey
	}
	return s.AppHotkey
}

// Backend is the key-value persistence the store writes through.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store guards the live settings and persists every explicit save.
type Store struct {
	mu      sync.RWMutex
	cur     Settings
	backend Backend
	logger  *log.Logger
}

// Load reads every key best-effort: read errors and invalid values are
// logged and the default is kept.
func Load(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{cur: Defaults(), backend: backend, logger: logger}

	get := func(key string) (string, bool) {
		v, ok, err := backend.Get(key)
		if err != nil {
			logger.Warn("settings read failed", "key", key, "err", err)
			return "", false
		}
		return v, ok && v != ""
	}

	if v, ok := get(KeyAPIKey); ok {
		s.cur.APIKey = v
	}
	if v, ok := get(KeyMode); ok {
		if m, err := chat.ParseMode(v); err == nil {
			s.cur.Mode = m
		} else {
			logger.Warn("ignoring stored mode", "value", v)
		}
	}
	if v, ok := get(KeyHotkeyApp); ok {
		s.cur.AppHotkey = v
	}
	if v, ok := get(KeyHotkeyRec); ok {
		s.cur.RecHotkey = v
	}
	if v, ok := get(KeyMagicPaste); ok {
		s.cur.MagicPaste = v == "true"
	}
	if v, ok := get(KeyCustomPrompt); ok {
		s.cur.CustomPrompt = v
	}
	return s
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) save(key, value string, apply func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(key, value); err != nil {
		return errors.Wrap(err, "save settings")
	}
	apply(&s.cur)
	return nil
}

// SetAPIKey saves the credential.
func (s *Store) SetAPIKey(key string) error {
	return s.save(KeyAPIKey, key, func(c *Settings) { c.APIKey = key })
}

// SetMode saves the active mode.
func (s *Store) SetMode(m chat.Mode) error {
	if !m.Valid() {
		return errors.Errorf("unknown mode %q", m)
	}
	return s.save(KeyMode, string(m), func(c *Settings) { c.Mode = m })
}

// SetCustomPrompt saves the prompt used by custom mode.
func (s *Store) SetCustomPrompt(p string) error {
	return s.save(KeyCustomPrompt, p, func(c *Settings) { c.CustomPrompt = p })
}

// SetMagicPaste saves the delivery preference.
func (s *Store) SetMagicPaste(on bool) error {
	return s.save(KeyMagicPaste, strconv.FormatBool(on), func(c *Settings) { c.MagicPaste = on })
}

// SetHotkey saves the combo for purpose. The caller is responsible for
// registering it.
func (s *Store) SetHotkey(p hotkey.Purpose, combo string) error {
	if p == hotkey.PurposeToggleRecording {
		return s.save(KeyHotkeyRec, combo, func(c *Settings) { c.RecHotkey = combo })
	}
	return s.save(KeyHotkeyApp, combo, func(c *Settings) { c.AppHotkey = combo })
}
