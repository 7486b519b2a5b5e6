package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagValues holds parsed flags with explicit set tracking, so only flags the
// user actually passed override the config file.
type FlagValues struct {
	DataDir           string
	DataDirSet        bool
	RequestTimeout    int
	RequestTimeoutSet bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool
	SettleDelayMS     int
	SettleDelayMSSet  bool
	Channels          int
	ChannelsSet       bool
	SampleRate        int
	SampleRateSet     bool
	Transcode         bool
	TranscodeSet      bool
	Codec             string
	CodecSet          bool
	Container         string
	ContainerSet      bool
	BitRate           int
	BitRateSet        bool
	CacheDir          string
	CacheDirSet       bool
	KeepCache         bool
	KeepCacheSet      bool
	HotKeyHook        bool
	HotKeyHookSet     bool
	Notification      bool
	NotificationSet   bool
	Headless          bool
	HeadlessSet       bool
	LogLevel          string
	LogLevelSet       bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	*s.target = v
	*s.set = true
	return nil
}

func (s *stringFlag) Type() string { return "string" }

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return strconv.Itoa(*i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*i.target = n
	*i.set = true
	return nil
}

func (i *intFlag) Type() string { return "int" }

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return strconv.FormatBool(*b.target)
}

// ParseBool accepts the usual spellings plus yes/no and y/n.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := ParseBool(v)
	if err != nil {
		return err
	}
	*b.target = n
	*b.set = true
	return nil
}

func (b *boolFlag) Type() string { return "bool" }

func bindBool(fs *pflag.FlagSet, target, set *bool, name, usage string) {
	f := fs.VarPF(&boolFlag{target, set}, name, "", usage)
	f.NoOptDefVal = "true"
}

// BindFlags registers all config override flags and returns the populated
// FlagValues once the set is parsed.
func BindFlags(fs *pflag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.DataDir, &fv.DataDirSet}, "data-dir", "directory for state, logs and the control socket")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds (0 = transport default)")
	bindBool(fs, &fv.EnableHTTP2, &fv.EnableHTTP2Set, "enable-http2", "enable HTTP/2 (true/false)")
	bindBool(fs, &fv.VerifySSL, &fv.VerifySSLSet, "verify-ssl", "verify TLS certificates (true/false)")
	fs.Var(&intFlag{&fv.SettleDelayMS, &fv.SettleDelayMSSet}, "settle-delay", "milliseconds to wait for focus to return before typing")

	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "recording channels")
	fs.Var(&intFlag{&fv.SampleRate, &fv.SampleRateSet}, "sampling-rate", "recording sampling rate (Hz)")
	bindBool(fs, &fv.Transcode, &fv.TranscodeSet, "transcode", "compress recordings with ffmpeg before upload")
	fs.Var(&stringFlag{&fv.Codec, &fv.CodecSet}, "codecs", "transcode codec (e.g. OPUS, AAC, MP3, FLAC)")
	fs.Var(&stringFlag{&fv.Container, &fv.ContainerSet}, "container", "transcode container (e.g. OGG, MP3, FLAC, M4A)")
	fs.Var(&intFlag{&fv.BitRate, &fv.BitRateSet}, "bit-rate", "transcode bit rate (kbps)")

	fs.Var(&stringFlag{&fv.CacheDir, &fv.CacheDirSet}, "cache-dir", "cache directory for recordings")
	bindBool(fs, &fv.KeepCache, &fv.KeepCacheSet, "keep-cache", "keep recordings and raw responses (true/false)")
	bindBool(fs, &fv.HotKeyHook, &fv.HotKeyHookSet, "hotkeyhook", "use low-level keyboard hook (true/false)")
	bindBool(fs, &fv.Notification, &fv.NotificationSet, "notification", "enable desktop notifications (true/false)")
	bindBool(fs, &fv.Headless, &fv.HeadlessSet, "headless", "run without the chat window")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "log level (debug, info, warn, error)")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.DataDirSet {
		cfg.DataDir = fv.DataDir
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}
	if fv.SettleDelayMSSet {
		cfg.SettleDelayMS = fv.SettleDelayMS
	}
	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.SampleRateSet {
		cfg.SampleRate = fv.SampleRate
	}
	if fv.TranscodeSet {
		cfg.Transcode = fv.Transcode
	}
	if fv.CodecSet {
		cfg.Codec = fv.Codec
	}
	if fv.ContainerSet {
		cfg.Container = fv.Container
	}
	if fv.BitRateSet {
		cfg.BitRate = fv.BitRate
	}
	if fv.CacheDirSet {
		cfg.CacheDir = fv.CacheDir
	}
	if fv.KeepCacheSet {
		cfg.KeepCache = fv.KeepCache
	}
	if fv.HotKeyHookSet {
		cfg.HotKeyHook = fv.HotKeyHook
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.HeadlessSet {
		cfg.Headless = fv.Headless
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
}

// AnySet reports whether any flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.DataDirSet ||
		fv.RequestTimeoutSet ||
		fv.EnableHTTP2Set ||
		fv.VerifySSLSet ||
		fv.SettleDelayMSSet ||
		fv.ChannelsSet ||
		fv.SampleRateSet ||
		fv.TranscodeSet ||
		fv.CodecSet ||
		fv.ContainerSet ||
		fv.BitRateSet ||
		fv.CacheDirSet ||
		fv.KeepCacheSet ||
		fv.HotKeyHookSet ||
		fv.NotificationSet ||
		fv.HeadlessSet ||
		fv.LogLevelSet
}
