package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"echoflow/internal/asr"
	"echoflow/internal/audio/ffmpeg"
	"echoflow/internal/config"
	"echoflow/internal/record"

	"github.com/charmbracelet/log"
)

// wavHeaderSize is the canonical RIFF header; a file no larger holds no
// samples.
const wavHeaderSize = 44

type recorder interface {
	Start(ctx context.Context) error
	Stop() (record.Clip, error)
	Cancel() error
}

type converter func(ctx context.Context, opts ffmpeg.Options, in, out string) error

// cache decides what happens to audio files once their bytes are in memory:
// moved into the cache dir when keeping, removed otherwise.
type cache struct {
	dir    string
	keep   bool
	logger *log.Logger
	now    func() time.Time
}

func newCache(cfg config.Config, logger *log.Logger) *cache {
	return &cache{
		dir:    cfg.CacheDir,
		keep:   cfg.KeepCache && cfg.CacheDir != "",
		logger: logger,
		now:    time.Now,
	}
}

// keepFile archives or removes path and returns where it ended up ("" when
// removed).
func (c *cache) keepFile(path string) string {
	if path == "" {
		return ""
	}
	if !c.keep {
		_ = os.Remove(path)
		return ""
	}
	dst := filepath.Join(c.dir, fmt.Sprintf("audio-%s%s", c.now().Format("2006-01-02-15.04.05"), filepath.Ext(path)))
	if err := os.Rename(path, dst); err != nil {
		c.logger.Warn("failed to move recording into cache", "dst", dst, "err", err)
		_ = os.Remove(path)
		return ""
	}
	return dst
}

// keepResponse writes the raw transcription response next to the archived
// audio.
func (c *cache) keepResponse(audioPath string, body []byte) {
	if !c.keep || audioPath == "" || len(body) == 0 {
		return
	}
	p := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
	if err := os.WriteFile(p, body, 0o644); err != nil {
		c.logger.Warn("failed to write response", "path", p, "err", err)
	}
}

// capture adapts the recorder to pipeline.Capture: it optionally transcodes
// the WAV with ffmpeg and hands the session an in-memory clip.
type capture struct {
	rec       recorder
	transcode bool
	ffmpeg    ffmpeg.Options
	container string
	tempDir   string
	convert   converter
	cache     *cache
	logger    *log.Logger
}

func newCapture(rec recorder, cfg config.Config, c *cache, logger *log.Logger) *capture {
	transcode := cfg.Transcode
	if transcode && !ffmpeg.Available() {
		logger.Warn("ffmpeg not found on PATH; uploading WAV")
		transcode = false
	}
	return &capture{
		rec:       rec,
		transcode: transcode,
		ffmpeg: ffmpeg.Options{
			Codec:      cfg.Codec,
			Channels:   cfg.Channels,
			SampleRate: cfg.SampleRate,
			BitRate:    cfg.BitRate,
			Logger:     logger,
		},
		container: cfg.Container,
		tempDir:   config.TempDir(&cfg),
		convert:   ffmpeg.Convert,
		cache:     c,
		logger:    logger,
	}
}

func (c *capture) Start(ctx context.Context) error {
	return c.rec.Start(ctx)
}

func (c *capture) Cancel() error {
	return c.rec.Cancel()
}

// Stop finishes the recording. A clip without samples comes back with no
// data so the session reports it as empty. When transcoding, the WAV stays in
// the temp dir until encode runs on the transcription worker.
func (c *capture) Stop() (record.Clip, error) {
	clip, err := c.rec.Stop()
	if err != nil {
		return record.Clip{}, err
	}
	if len(clip.Data) <= wavHeaderSize {
		c.cache.keepFile(clip.Path)
		return record.Clip{}, nil
	}
	if c.transcode {
		return clip, nil
	}
	clip.Path = c.cache.keepFile(clip.Path)
	return clip, nil
}

// encode transcodes a clip returned by Stop. It falls back to the WAV when
// ffmpeg fails or ctx is done.
func (c *capture) encode(ctx context.Context, clip record.Clip) record.Clip {
	if !c.transcode {
		return clip
	}
	out := record.TempPath(c.tempDir, config.ContainerExt(c.container))
	if err := c.convert(ctx, c.ffmpeg, clip.Path, out); err != nil {
		c.logger.Warn("transcode failed; uploading WAV", "err", err)
		_ = os.Remove(out)
		clip.Path = c.cache.keepFile(clip.Path)
		return clip
	}
	converted, err := record.ReadClip(out, clip.Duration)
	if err != nil {
		_ = os.Remove(out)
		clip.Path = c.cache.keepFile(clip.Path)
		return clip
	}
	c.cache.keepFile(clip.Path)
	converted.Path = c.cache.keepFile(out)
	return converted
}

// cachingTranscriber keeps the raw response next to a cached recording. A
// non-nil encode runs first, on the caller's goroutine.
type cachingTranscriber struct {
	client *asr.Client
	cache  *cache
	encode func(ctx context.Context, clip record.Clip) record.Clip
}

func (t *cachingTranscriber) Transcribe(ctx context.Context, clip record.Clip, credential string) (string, error) {
	if t.encode != nil {
		clip = t.encode(ctx, clip)
	}
	text, raw, err := t.client.TranscribeRaw(ctx, clip, credential)
	if err == nil {
		t.cache.keepResponse(clip.Path, raw)
	}
	return text, err
}
