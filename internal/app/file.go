package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"echoflow/internal/asr"
	"echoflow/internal/audio/ffmpeg"
	"echoflow/internal/chat"
	"echoflow/internal/config"
	"echoflow/internal/enrich"
	"echoflow/internal/pipeline"
	"echoflow/internal/record"
	"echoflow/internal/remote"

	"github.com/charmbracelet/log"
)

// ErrNoAPIKey is returned by file mode when no key has been saved.
var ErrNoAPIKey = errors.New("no API key saved; run `echoflow settings set apikey <key>`")

// FileRequest describes one file-mode run.
type FileRequest struct {
	Input string
	// Output defaults to <input name>.txt in the working directory.
	Output string
	// Mode, when set, enriches the transcript and archives the conversation.
	Mode chat.Mode
}

// FileResult is what file mode produced.
type FileResult struct {
	Transcript string
	Reply      string
	Output     string
}

type fileRunner struct {
	transcriber pipeline.Transcriber
	enricher    pipeline.Enricher
	history     pipeline.History
	convert     converter
	ffmpeg      ffmpeg.Options
	transcode   bool
	container   string
	tempDir     string
	cache       *cache
	logger      *log.Logger
}

// TranscribeFile uploads an existing audio file, optionally enriches the
// transcript and writes the result to a text file.
func TranscribeFile(ctx context.Context, cfg config.Config, logger *log.Logger, req FileRequest) (FileResult, error) {
	tempDir := config.TempDir(&cfg)
	if _, err := record.CleanupTemp(tempDir); err != nil {
		logger.Debug("cleanup failed", "dir", tempDir, "err", err)
	}

	st, err := OpenState(cfg, logger)
	if err != nil {
		return FileResult{}, err
	}
	defer st.Close()

	snap := st.Settings.Snapshot()
	if snap.APIKey == "" {
		return FileResult{}, ErrNoAPIKey
	}

	httpClient := remote.NewHTTPClient(ClientOptions(cfg))
	c := newCache(cfg, logger.WithPrefix("cache"))
	r := &fileRunner{
		transcriber: &cachingTranscriber{
			client: asr.New(httpClient, asr.WithLogger(logger.WithPrefix("upload"))),
			cache:  c,
		},
		enricher: enrich.New(httpClient, enrich.WithLogger(logger.WithPrefix("enrich"))),
		history:  st.History,
		convert:  ffmpeg.Convert,
		ffmpeg: ffmpeg.Options{
			Codec:      cfg.Codec,
			Channels:   cfg.Channels,
			SampleRate: cfg.SampleRate,
			BitRate:    cfg.BitRate,
			Logger:     logger.WithPrefix("ffmpeg"),
		},
		transcode: cfg.Transcode && ffmpeg.Available(),
		container: cfg.Container,
		tempDir:   tempDir,
		cache:     c,
		logger:    logger,
	}
	return r.run(ctx, req, snap.APIKey, snap.CustomPrompt)
}

func (r *fileRunner) run(ctx context.Context, req FileRequest, key, customPrompt string) (FileResult, error) {
	if _, err := os.Stat(req.Input); err != nil {
		return FileResult{}, fmt.Errorf("file '%s' stat failed: %w", req.Input, err)
	}

	clip, err := r.load(ctx, req.Input)
	if err != nil {
		return FileResult{}, err
	}

	text, err := r.transcriber.Transcribe(ctx, clip, key)
	if err != nil {
		return FileResult{}, err
	}
	res := FileResult{Transcript: text}
	out := text

	if req.Mode != "" {
		conv := []chat.Message{{Role: chat.RoleUser, Content: text}}
		reply, err := r.enricher.Complete(ctx, conv, key, req.Mode.SystemPrompt(customPrompt))
		if err != nil {
			return res, err
		}
		res.Reply = reply
		out = reply
		conv = append(conv, chat.Message{Role: chat.RoleAssistant, Content: reply})
		if _, err := r.history.Record(conv, req.Mode); err != nil {
			r.logger.Warn("history not saved", "err", err)
		}
	}

	res.Output = req.Output
	if res.Output == "" {
		base := strings.TrimSuffix(filepath.Base(req.Input), filepath.Ext(req.Input))
		res.Output = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(res.Output, []byte(out), 0o644); err != nil {
		return res, err
	}
	return res, nil
}

// load reads the input, transcoding a copy first when enabled. The input
// file itself is never moved or removed.
func (r *fileRunner) load(ctx context.Context, in string) (record.Clip, error) {
	if !r.transcode {
		clip, err := record.ReadClip(in, 0)
		clip.Path = ""
		return clip, err
	}
	out := record.TempPath(r.tempDir, config.ContainerExt(r.container))
	if err := r.convert(ctx, r.ffmpeg, in, out); err != nil {
		_ = os.Remove(out)
		return record.Clip{}, err
	}
	clip, err := record.ReadClip(out, 0)
	if err != nil {
		_ = os.Remove(out)
		return record.Clip{}, err
	}
	clip.Path = r.cache.keepFile(out)
	return clip, nil
}
