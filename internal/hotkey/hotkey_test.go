package hotkey

import (
	"errors"
	"fmt"
	"testing"

	"echoflow/internal/logging"
)

type call struct {
	op    string
	combo string
}

type fakeHost struct {
	calls      []call
	active     map[Combo]func()
	failCombos map[string]bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{active: make(map[Combo]func()), failCombos: make(map[string]bool)}
}

func (f *fakeHost) Register(c Combo, fn func()) error {
	f.calls = append(f.calls, call{"register", c.String()})
	if f.failCombos[c.String()] {
		return fmt.Errorf("combo %s taken by another app", c)
	}
	f.active[c] = fn
	return nil
}

func (f *fakeHost) Unregister(c Combo) error {
	f.calls = append(f.calls, call{"unregister", c.String()})
	delete(f.active, c)
	return nil
}

func (f *fakeHost) count(op, combo string) int {
	n := 0
	for _, c := range f.calls {
		if c.op == op && c.combo == combo {
			n++
		}
	}
	return n
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		vk      uint32
		wantErr bool
	}{
		{"Alt+Shift+R", "Alt+Shift+R", 'R', false},
		{"shift + alt + s", "Alt+Shift+S", 'S', false},
		{"ctrl+F1", "Ctrl+F1", 0x70, false},
		{"Command+Space", "Command+Space", 0x20, false},
		{"esc", "Esc", 0x1B, false},
		{"Alt+num3", "Alt+Numpad3", 0x63, false},
		{"Alt+7", "Alt+7", '7', false},
		{"", "", 0, true},
		{"Alt+", "", 0, true},
		{"Hyper+R", "", 0, true},
		{"Alt+F25", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c.String() != tt.want || c.VK != tt.vk {
				t.Fatalf("Parse(%q) = %s vk=0x%X, want %s vk=0x%X", tt.in, c, c.VK, tt.want, tt.vk)
			}
		})
	}
}

func TestRebindUnregistersOldOnceAndRegistersNewOnce(t *testing.T) {
	host := newFakeHost()
	r := NewRegistry(host, logging.Discard())

	if err := r.Bind(PurposeToggleRecording, "Alt+Shift+R", func() {}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := r.Bind(PurposeToggleRecording, "Ctrl+Shift+K", func() {}); err != nil {
		t.Fatalf("rebind error = %v", err)
	}

	if n := host.count("unregister", "Alt+Shift+R"); n != 1 {
		t.Fatalf("old combo unregistered %d times, want 1", n)
	}
	if n := host.count("register", "Ctrl+Shift+K"); n != 1 {
		t.Fatalf("new combo registered %d times, want 1", n)
	}
	if len(host.active) != 1 {
		t.Fatalf("active registrations = %d, want 1", len(host.active))
	}
	got := r.Bindings()
	if len(got) != 1 || got[0].Combo != "Ctrl+Shift+K" {
		t.Fatalf("Bindings() = %+v", got)
	}
}

func TestBindFailureRestoresPreviousCombo(t *testing.T) {
	host := newFakeHost()
	r := NewRegistry(host, logging.Discard())
	fired := 0
	if err := r.Bind(PurposeToggleApp, "Alt+Shift+S", func() { fired++ }); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	host.failCombos["Alt+F9"] = true

	if err := r.Bind(PurposeToggleApp, "Alt+F9", func() {}); err == nil {
		t.Fatal("expected register failure")
	}

	old, _ := Parse("Alt+Shift+S")
	fn, ok := host.active[old]
	if !ok {
		t.Fatal("previous combo should be registered again")
	}
	fn()
	if fired != 1 {
		t.Fatal("restored combo should keep its callback")
	}
	if got := r.Bindings(); len(got) != 1 || got[0].Combo != "Alt+Shift+S" {
		t.Fatalf("Bindings() = %+v", got)
	}
}

func TestBindRejectsComboOfOtherPurpose(t *testing.T) {
	host := newFakeHost()
	r := NewRegistry(host, logging.Discard())
	if err := r.Bind(PurposeToggleApp, "Alt+Shift+S", func() {}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	err := r.Bind(PurposeToggleRecording, "shift+alt+s", func() {})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Bind() error = %v, want ErrConflict", err)
	}
	if len(host.calls) != 1 {
		t.Fatalf("host should not be touched on conflict: %+v", host.calls)
	}
}

func TestBindInvalidComboLeavesBindingAlone(t *testing.T) {
	host := newFakeHost()
	r := NewRegistry(host, logging.Discard())
	_ = r.Bind(PurposeToggleApp, "Alt+Shift+S", func() {})
	if err := r.Bind(PurposeToggleApp, "Alt+Bogus", func() {}); err == nil {
		t.Fatal("expected parse error")
	}
	if host.count("unregister", "Alt+Shift+S") != 0 {
		t.Fatal("parse failure must not unregister the current combo")
	}
}

func TestCloseUnregistersAll(t *testing.T) {
	host := newFakeHost()
	r := NewRegistry(host, logging.Discard())
	_ = r.Bind(PurposeToggleApp, DefaultCombo(PurposeToggleApp), func() {})
	_ = r.Bind(PurposeToggleRecording, DefaultCombo(PurposeToggleRecording), func() {})
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(host.active) != 0 || len(r.Bindings()) != 0 {
		t.Fatal("Close() should release every combo")
	}
}

func TestParsePurpose(t *testing.T) {
	for in, want := range map[string]Purpose{
		"app":                   PurposeToggleApp,
		"toggle-app-visibility": PurposeToggleApp,
		"rec":                   PurposeToggleRecording,
		"toggle-recording":      PurposeToggleRecording,
	} {
		if got, err := ParsePurpose(in); err != nil || got != want {
			t.Errorf("ParsePurpose(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePurpose("pause"); err == nil {
		t.Error("expected error")
	}
}
