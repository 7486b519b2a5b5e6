package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a bit set of held modifier keys. The values match the Win32
// MOD_* flags so the Windows host can pass them through unchanged.
type Modifier uint32

const (
	ModAlt   Modifier = 0x0001
	ModCtrl  Modifier = 0x0002
	ModShift Modifier = 0x0004
	ModMeta  Modifier = 0x0008
)

// Combo is a parsed key combination such as Alt+Shift+R.
type Combo struct {
	Mods Modifier
	// Key is the canonical key name: "R", "7", "F1", "Space", "Numpad3".
	Key string
	// VK is the Win32 virtual-key code for Key.
	VK uint32
}

// String renders the combo in the stored form, modifiers first in a fixed
// order: Alt+Ctrl+Shift+Command+Key.
func (c Combo) String() string {
	var parts []string
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if c.Mods&ModMeta != 0 {
		parts = append(parts, "Command")
	}
	return strings.Join(append(parts, c.Key), "+")
}

var namedKeys = map[string]struct {
	name string
	vk   uint32
}{
	"esc":       {"Esc", 0x1B},
	"escape":    {"Esc", 0x1B},
	"space":     {"Space", 0x20},
	"enter":     {"Enter", 0x0D},
	"return":    {"Enter", 0x0D},
	"tab":       {"Tab", 0x09},
	"backspace": {"Backspace", 0x08},
	"insert":    {"Insert", 0x2D},
	"delete":    {"Delete", 0x2E},
	"home":      {"Home", 0x24},
	"end":       {"End", 0x23},
	"pageup":    {"PageUp", 0x21},
	"pagedown":  {"PageDown", 0x22},
	"left":      {"Left", 0x25},
	"up":        {"Up", 0x26},
	"right":     {"Right", 0x27},
	"down":      {"Down", 0x28},
	"add":       {"Add", 0x6B},
	"plus":      {"Add", 0x6B},
	"subtract":  {"Subtract", 0x6D},
	"minus":     {"Subtract", 0x6D},
}

// Parse accepts strings like "Alt+Shift+R", "ctrl+F1" or "esc". Modifier
// names are case-insensitive; "cmd", "command", "win", "meta" and "super" all
// mean the platform key.
func Parse(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("empty hotkey")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(parts[i]))
	}

	var c Combo
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "alt", "option", "menu":
			c.Mods |= ModAlt
		case "ctrl", "control":
			c.Mods |= ModCtrl
		case "shift":
			c.Mods |= ModShift
		case "win", "meta", "super", "cmd", "command":
			c.Mods |= ModMeta
		default:
			return Combo{}, fmt.Errorf("unknown modifier %q in hotkey %q", p, s)
		}
	}

	key := parts[len(parts)-1]
	if err := c.setKey(key); err != nil {
		return Combo{}, fmt.Errorf("hotkey %q: %w", s, err)
	}
	return c, nil
}

func (c *Combo) setKey(key string) error {
	if len(key) == 1 {
		ch := key[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			c.Key, c.VK = strings.ToUpper(key), uint32(ch-'a'+'A')
			return nil
		case ch >= '0' && ch <= '9':
			c.Key, c.VK = key, uint32(ch)
			return nil
		}
	}
	if k, ok := namedKeys[key]; ok {
		c.Key, c.VK = k.name, k.vk
		return nil
	}
	if n, ok := numbered(key, "f"); ok && n >= 1 && n <= 24 {
		c.Key, c.VK = "F"+strconv.Itoa(n), 0x70+uint32(n-1)
		return nil
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if n, ok := numbered(key, prefix); ok && n >= 0 && n <= 9 {
			c.Key, c.VK = "Numpad"+strconv.Itoa(n), 0x60+uint32(n)
			return nil
		}
	}
	if key == "" {
		return fmt.Errorf("missing key")
	}
	return fmt.Errorf("unsupported key %q", key)
}

func numbered(token, prefix string) (int, bool) {
	if !strings.HasPrefix(token, prefix) || len(token) == len(prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(token[len(prefix):])
	return n, err == nil
}
