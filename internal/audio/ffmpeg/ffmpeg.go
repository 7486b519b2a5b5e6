// Package ffmpeg shrinks recordings before upload by shelling out to ffmpeg.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Options select the output encoding.
type Options struct {
	Codec      string
	Channels   int
	SampleRate int
	BitRate    int // kbps
	Logger     *log.Logger
}

// Available reports whether an ffmpeg binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Args builds the ffmpeg command line for converting in to out.
func Args(opts Options, in, out string) ([]string, error) {
	codec, hasBitrate := codecFor(opts.Codec)
	if codec == "" {
		return nil, fmt.Errorf("unsupported codec: %s", opts.Codec)
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	rate := opts.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	bitrate := opts.BitRate
	if bitrate <= 0 {
		bitrate = 64
	}

	args := []string{"-y", "-loglevel", "error", "-i", in, "-ac", strconv.Itoa(channels), "-ar", strconv.Itoa(rate), "-c:a", codec}
	if hasBitrate {
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
	}
	return append(args, out), nil
}

// Convert runs ffmpeg and returns its stderr in the error on failure.
func Convert(ctx context.Context, opts Options, in, out string) error {
	args, err := Args(opts, in, out)
	if err != nil {
		return err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("executing", "cmd", "ffmpeg "+strings.Join(args, " "))
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func codecFor(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "opus", "libopus":
		return "libopus", true
	case "aac":
		return "aac", true
	case "mp3":
		return "libmp3lame", true
	case "flac":
		return "flac", false
	case "pcm":
		return "pcm_s16le", false
	case "vorbis", "libvorbis":
		return "libvorbis", true
	default:
		return "", false
	}
}
