package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds process-level parameters. User-facing settings (API key,
// mode, hotkeys, delivery preference) live in the settings store instead.
type Config struct {
	DataDir        string `json:"DATA_DIR"`
	RequestTimeout int    `json:"REQUEST_TIMEOUT"`
	EnableHTTP2    bool   `json:"ENABLE_HTTP2"`
	VerifySSL      bool   `json:"VERIFY_SSL"`
	SettleDelayMS  int    `json:"SETTLE_DELAY_MS"`
	Channels       int    `json:"CHANNELS"`
	SampleRate     int    `json:"SAMPLING_RATE"`
	Transcode      bool   `json:"TRANSCODE"`
	Codec          string `json:"CODECS"`
	Container      string `json:"CONTAINER"`
	BitRate        int    `json:"BIT_RATE"`
	CacheDir       string `json:"CACHE_DIR"`
	KeepCache      bool   `json:"KEEP_CACHE"`
	HotKeyHook     bool   `json:"HOTKEY_HOOK"`
	Notification   bool   `json:"NOTIFICATION"`
	Headless       bool   `json:"HEADLESS"`
	LogLevel       string `json:"LOG_LEVEL"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:        "",
		RequestTimeout: 0,
		EnableHTTP2:    true,
		VerifySSL:      true,
		SettleDelayMS:  500,
		Channels:       1,
		SampleRate:     16000,
		Transcode:      false,
		Codec:          "opus",
		Container:      "ogg",
		BitRate:        64,
		CacheDir:       "",
		KeepCache:      false,
		HotKeyHook:     false,
		Notification:   false,
		Headless:       false,
		LogLevel:       "info",
	}
}

// DefaultDataDir returns the per-user directory holding state, logs and the
// control socket.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(base, "echoflow"), nil
}

// DefaultPath returns the config file location inside the default data dir.
func DefaultPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load decodes the JSON file at path over the defaults. A missing file is not
// an error; an unparsable one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	b, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

var allowedCodecs = map[string]bool{
	"opus": true, "libopus": true, "aac": true, "mp3": true,
	"flac": true, "vorbis": true, "libvorbis": true, "pcm": true,
}

var allowedContainers = map[string]bool{
	"wav": true, "ogg": true, "oga": true, "opus": true, "mp3": true,
	"flac": true, "m4a": true, "webm": true,
}

var allowedLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..2)", cfg.Channels)
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SampleRate)
	}
	if cfg.BitRate <= 0 {
		return fmt.Errorf("invalid BIT_RATE: %d (must be > 0)", cfg.BitRate)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be >= 0)", cfg.RequestTimeout)
	}
	if cfg.SettleDelayMS < 0 {
		return fmt.Errorf("invalid SETTLE_DELAY_MS: %d (must be >= 0)", cfg.SettleDelayMS)
	}
	if !allowedCodecs[strings.ToLower(cfg.Codec)] {
		return fmt.Errorf("invalid CODECS: %s (allowed: OPUS, LIBOPUS, AAC, MP3, FLAC, VORBIS, LIBVORBIS, PCM)", cfg.Codec)
	}
	if !allowedContainers[strings.ToLower(cfg.Container)] {
		return fmt.Errorf("invalid CONTAINER: %s (allowed: WAV, OGG, OGA, OPUS, MP3, FLAC, M4A, WEBM)", cfg.Container)
	}
	if !allowedLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (allowed: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}

// ResolveDataDir fills in DataDir with the default location when empty and
// creates it.
func ResolveDataDir(cfg *Config) error {
	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		cfg.DataDir = dir
	}
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("data dir path invalid '%s': %w", cfg.DataDir, err)
	}
	cfg.DataDir = abs
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return fmt.Errorf("create data dir %s: %w", abs, err)
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It clears cfg.CacheDir when the directory cannot be used and returns a
// description of what happened for the caller to log.
func InitCacheDir(cfg *Config) string {
	if cfg.CacheDir == "" {
		return ""
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		cfg.CacheDir = ""
		return fmt.Sprintf("cache-dir path invalid: %v; falling back to data dir", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		cfg.CacheDir = ""
		return fmt.Sprintf("cache-dir '%s' exists but is not a directory; falling back to data dir", abs)
	case err == nil:
		cfg.CacheDir = abs
		return "using existing cache-dir " + abs
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			cfg.CacheDir = ""
			return fmt.Sprintf("cannot create cache-dir '%s': %v; falling back to data dir", abs, err)
		}
		cfg.CacheDir = abs
		return "created cache-dir " + abs
	default:
		cfg.CacheDir = ""
		return fmt.Sprintf("cannot access cache-dir '%s': %v; falling back to data dir", abs, err)
	}
}

// TempDir returns the directory to use for temporary recordings.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	return cfg.DataDir
}

// DBPath is the key-value state database.
func DBPath(cfg *Config) string { return filepath.Join(cfg.DataDir, "state.db") }

// LogPath is where logs go while the chat window owns the terminal.
func LogPath(cfg *Config) string { return filepath.Join(cfg.DataDir, "echoflow.log") }

// SocketPath is the control socket of a running instance.
func SocketPath(cfg *Config) string { return filepath.Join(cfg.DataDir, "control.sock") }

// ContainerExt maps container names to file extensions (lowercase).
func ContainerExt(container string) string {
	c := strings.ToLower(container)
	switch c {
	case "":
		return "ogg"
	case "opus":
		return "opus"
	default:
		return c
	}
}

// ContainerMIME returns the content type used when uploading a file of the
// given extension.
func ContainerMIME(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav":
		return "audio/wav"
	case "ogg", "oga", "opus":
		return "audio/ogg"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "m4a":
		return "audio/mp4"
	case "webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
