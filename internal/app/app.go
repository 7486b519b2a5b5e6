// Package app builds every component from the config and the stored
// settings and runs them together.
package app

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"echoflow/internal/asr"
	"echoflow/internal/clipboard"
	"echoflow/internal/config"
	"echoflow/internal/control"
	"echoflow/internal/delivery"
	"echoflow/internal/enrich"
	"echoflow/internal/hotkey"
	"echoflow/internal/notify"
	"echoflow/internal/pipeline"
	"echoflow/internal/record"
	"echoflow/internal/remote"
	"echoflow/internal/tui"

	"github.com/charmbracelet/log"

	tea "github.com/charmbracelet/bubbletea"
)

// headlessWindow stands in for the chat window when none is shown.
type headlessWindow struct{}

func (headlessWindow) Show() error   { return nil }
func (headlessWindow) Hide() error   { return nil }
func (headlessWindow) Focus() error  { return nil }
func (headlessWindow) Visible() bool { return false }

// windowHost is what both the session and the delivery dispatcher need.
type windowHost interface {
	pipeline.Window
	delivery.Window
}

// logSink records every state change.
func logSink(logger *log.Logger) pipeline.SinkFunc {
	var last pipeline.Status
	return func(e pipeline.Event) {
		if e.Status != last {
			logger.Info("status", "status", e.Status, "mode", e.Mode)
			last = e.Status
		}
		if e.Err != nil && e.Status == pipeline.StatusError {
			logger.Error("session failed", "err", e.Err)
		}
		if e.Delivery != nil {
			logger.Info("delivered", "method", e.Delivery.Method, "fellBack", e.Delivery.FellBack)
		}
	}
}

// ClientOptions maps the config onto the shared HTTP transport.
func ClientOptions(cfg config.Config) remote.ClientOptions {
	return remote.ClientOptions{
		Timeout:     time.Duration(cfg.RequestTimeout) * time.Second,
		EnableHTTP2: cfg.EnableHTTP2,
		VerifySSL:   cfg.VerifySSL,
	}
}

// ExportDir is where exports from the chat window are written.
func ExportDir(cfg config.Config) string {
	return filepath.Join(cfg.DataDir, "exports")
}

// Run starts the session loop, hotkeys, control socket and (unless headless)
// the chat window, and blocks until quit or ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tempDir := config.TempDir(&cfg)
	if removed, err := record.CleanupTemp(tempDir); err != nil {
		logger.Warn("cleanup failed", "dir", tempDir, "err", err)
	} else {
		for _, p := range removed {
			logger.Debug("removed leftover recording", "path", p)
		}
	}

	st, err := OpenState(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	httpClient := remote.NewHTTPClient(ClientOptions(cfg))
	c := newCache(cfg, logger.WithPrefix("cache"))
	rec := record.New(record.Options{
		Channels:   cfg.Channels,
		SampleRate: cfg.SampleRate,
		TempDir:    tempDir,
		Logger:     logger.WithPrefix("record"),
	})

	var window windowHost = headlessWindow{}
	var tw *tui.Window
	if !cfg.Headless {
		tw = tui.NewWindow()
		window = tw
	}

	capt := newCapture(rec, cfg, c, logger.WithPrefix("ffmpeg"))
	session := pipeline.New(pipeline.Deps{
		Capture: capt,
		Transcriber: &cachingTranscriber{
			client: asr.New(httpClient, asr.WithLogger(logger.WithPrefix("upload"))),
			cache:  c,
			encode: capt.encode,
		},
		Enricher: enrich.New(httpClient, enrich.WithLogger(logger.WithPrefix("enrich"))),
		Deliverer: delivery.New(
			clipboard.System{},
			clipboard.NewInjector(),
			window,
			time.Duration(cfg.SettleDelayMS)*time.Millisecond,
			logger.WithPrefix("paste"),
		),
		Window:   window,
		History:  st.History,
		Settings: st.Settings,
		Logger:   logger.WithPrefix("session"),
	})
	if tw != nil {
		session.AddSink(tw)
	}
	if cfg.Notification {
		session.AddSink(notify.New(logger.WithPrefix("notify")))
	}
	session.AddSink(logSink(logger.WithPrefix("session")))

	hkLogger := logger.WithPrefix("hotkey")
	host, err := hotkey.NewHost(cfg.HotKeyHook, hkLogger)
	if err != nil {
		return err
	}
	hk := &hotkeys{
		registry: hotkey.NewRegistry(host, hkLogger),
		settings: st.Settings,
		actions: map[hotkey.Purpose]func(){
			hotkey.PurposeToggleApp:       func() { session.Submit(pipeline.ToggleVisibility{}) },
			hotkey.PurposeToggleRecording: func() { session.Submit(pipeline.ToggleRecording{}) },
		},
		logger: hkLogger,
	}
	hk.bindAll()
	defer hk.registry.Close()

	srv := control.NewServer(config.SocketPath(&cfg), &commandHandler{
		ctrl: session,
		bind: hk.rebind,
		quit: cancel,
	}, logger.WithPrefix("control"))
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()
	go func() {
		if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("control server stopped", "err", err)
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = session.Run(ctx)
	}()
	defer func() {
		cancel()
		<-loopDone
	}()

	if tw == nil {
		logger.Info("ready", "socket", config.SocketPath(&cfg))
		<-ctx.Done()
		return nil
	}

	snap := st.Settings.Snapshot()
	model := tui.New(tui.Options{
		Controller: session,
		History:    st.History,
		Window:     tw,
		ExportDir:  ExportDir(cfg),
		Mode:       snap.Mode,
		AppHotkey:  snap.AppHotkey,
		RecHotkey:  snap.RecHotkey,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	tw.Attach(program)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
