package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SettleDelayMS != 500 {
		t.Fatalf("SettleDelayMS = %d, want 500", cfg.SettleDelayMS)
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"SETTLE_DELAY_MS": 800, "NOTIFICATION": true}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SettleDelayMS != 800 || !cfg.Notification {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SampleRate != 16000 {
		t.Fatalf("unset keys should keep defaults, SampleRate = %d", cfg.SampleRate)
	}
}

func TestLoadRejectsBrokenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"SETTLE_DELAY_MS": `), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("round trip mismatch: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero channels", func(c *Config) { c.Channels = 0 }, true},
		{"negative settle delay", func(c *Config) { c.SettleDelayMS = -1 }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -5 }, true},
		{"unknown codec", func(c *Config) { c.Codec = "speex" }, true},
		{"upper-case codec", func(c *Config) { c.Codec = "OPUS" }, false},
		{"unknown container", func(c *Config) { c.Container = "avi" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := Validate(&cfg); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyFlagsOnlyOverridesSetFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fv := BindFlags(fs)
	if err := fs.Parse([]string{"--settle-delay", "250", "--notification", "--verify-ssl=no"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !fv.AnySet() {
		t.Fatal("AnySet() = false")
	}

	cfg := DefaultConfig()
	cfg.Channels = 2
	ApplyFlags(&cfg, fv)

	if cfg.SettleDelayMS != 250 {
		t.Errorf("SettleDelayMS = %d, want 250", cfg.SettleDelayMS)
	}
	if !cfg.Notification {
		t.Error("Notification should be enabled by bare flag")
	}
	if cfg.VerifySSL {
		t.Error("VerifySSL should be disabled")
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels = %d, unset flag must not override", cfg.Channels)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"1", "true", "YES", " y "} {
		if v, err := ParseBool(in); err != nil || !v {
			t.Errorf("ParseBool(%q) = %v, %v", in, v, err)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Error("expected error for maybe")
	}
}

func TestContainerHelpers(t *testing.T) {
	if got := ContainerExt(""); got != "ogg" {
		t.Errorf("ContainerExt(\"\") = %q", got)
	}
	if got := ContainerExt("FLAC"); got != "flac" {
		t.Errorf("ContainerExt(FLAC) = %q", got)
	}
	if got := ContainerMIME(".wav"); got != "audio/wav" {
		t.Errorf("ContainerMIME(.wav) = %q", got)
	}
}

func TestResolveDataDirCreatesDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "state")
	if err := ResolveDataDir(&cfg); err != nil {
		t.Fatalf("ResolveDataDir() error = %v", err)
	}
	if info, err := os.Stat(cfg.DataDir); err != nil || !info.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
	if TempDir(&cfg) != cfg.DataDir {
		t.Errorf("TempDir() should fall back to data dir")
	}
}
