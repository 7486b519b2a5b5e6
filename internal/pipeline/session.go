package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"echoflow/internal/chat"
	"echoflow/internal/record"
	"echoflow/internal/settings"

	"github.com/charmbracelet/log"
)

// Deps are the collaborators a Session drives. Window may be nil when the
// app runs headless.
type Deps struct {
	Capture     Capture
	Transcriber Transcriber
	Enricher    Enricher
	Deliverer   Deliverer
	Window      Window
	History     History
	Settings    Settings
	Logger      *log.Logger
}

type envelope struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	state State
	err   error
}

type transcribed struct {
	text string
	err  error
}

type enriched struct {
	text string
	err  error
}

// run is what a session fixes at start.
type run struct {
	settings settings.Settings
	mode     chat.Mode
	prompt   string
}

// Session is the pipeline state machine.
type Session struct {
	deps   Deps
	logger *log.Logger

	cmds    chan envelope
	results chan interface{}
	done    chan struct{}

	sinkMu sync.Mutex
	sinks  []EventSink

	// Owned by the loop goroutine.
	status  Status
	mode    chat.Mode
	conv    chat.Conversation
	lastErr error
	cur     run
}

// New creates a session. The active mode comes from the stored settings.
func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	mode := deps.Settings.Snapshot().Mode
	if !mode.Valid() {
		mode = chat.ModeClean
	}
	return &Session{
		deps:    deps,
		logger:  logger,
		cmds:    make(chan envelope, 16),
		results: make(chan interface{}, 1),
		done:    make(chan struct{}),
		status:  StatusIdle,
		mode:    mode,
	}
}

// AddSink registers an event sink. Call before Run.
func (s *Session) AddSink(sink EventSink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Run processes commands until ctx is done. A recording in progress is
// discarded on exit.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.publish(nil)
	for {
		select {
		case <-ctx.Done():
			if s.status == StatusRecording {
				if err := s.deps.Capture.Cancel(); err != nil {
					s.logger.Debug("cancel capture on shutdown", "err", err)
				}
			}
			return ctx.Err()
		case env := <-s.cmds:
			err := s.apply(ctx, env.cmd)
			if env.reply != nil {
				env.reply <- reply{state: s.state(), err: err}
			}
		case res := <-s.results:
			s.handleResult(ctx, res)
		}
	}
}

// Submit enqueues cmd without waiting for it to be applied. It is what hotkey
// callbacks use.
func (s *Session) Submit(cmd Command) {
	select {
	case s.cmds <- envelope{cmd: cmd}:
	case <-s.done:
	}
}

// Exec enqueues cmd and waits for the loop to apply it, returning the state
// right after.
func (s *Session) Exec(ctx context.Context, cmd Command) (State, error) {
	env := envelope{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case s.cmds <- env:
	case <-s.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.state, r.err
	case <-s.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	return s.Exec(ctx, GetState{})
}

func (s *Session) state() State {
	return State{
		Status:   s.status,
		Mode:     s.mode,
		Messages: s.conv.Messages(),
		Err:      s.lastErr,
	}
}

func (s *Session) publish(ev *Event) {
	e := Event{State: s.state()}
	if ev != nil {
		e.Delivery = ev.Delivery
	}
	s.sinkMu.Lock()
	sinks := append([]EventSink(nil), s.sinks...)
	s.sinkMu.Unlock()
	for _, sink := range sinks {
		sink.Publish(e)
	}
}

func (s *Session) setStatus(st Status) {
	if s.status != st {
		s.logger.Debug("status", "from", s.status, "to", st)
	}
	s.status = st
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.setStatus(StatusError)
	s.logger.Error("session failed", "err", err)
	s.publish(nil)
}

func (s *Session) apply(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case StartRecording:
		return s.start(ctx)
	case StopRecording:
		return s.stop(ctx)
	case ToggleRecording:
		switch {
		case s.status == StatusRecording:
			return s.stop(ctx)
		case s.status.Busy():
			s.logger.Debug("toggle ignored while busy", "status", s.status)
			return nil
		default:
			return s.start(ctx)
		}
	case CancelRecording:
		return s.cancel()
	case ToggleVisibility:
		return s.toggleVisibility()
	case SwitchMode:
		return s.switchMode(c.Mode)
	case SelectHistory:
		return s.selectHistory(c.ID)
	case ClearChat:
		return s.clearChat()
	case GetState:
		return nil
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

func (s *Session) start(ctx context.Context) error {
	if s.status.Busy() {
		s.logger.Debug("start ignored", "status", s.status)
		return nil
	}

	s.lastErr = nil
	snap := s.deps.Settings.Snapshot()
	s.cur = run{
		settings: snap,
		mode:     s.mode,
		prompt:   s.mode.SystemPrompt(snap.CustomPrompt),
	}

	if err := s.deps.Capture.Start(ctx); err != nil {
		s.lastErr = err
		s.logger.Error("recording did not start", "err", err)
		s.publish(nil)
		return err
	}
	s.setStatus(StatusRecording)
	s.showWindow()
	s.publish(nil)
	return nil
}

func (s *Session) showWindow() {
	w := s.deps.Window
	if w == nil {
		return
	}
	if err := w.Show(); err != nil {
		s.logger.Debug("show window", "err", err)
		return
	}
	if err := w.Focus(); err != nil {
		s.logger.Debug("focus window", "err", err)
	}
}

func (s *Session) stop(ctx context.Context) error {
	if s.status != StatusRecording {
		s.logger.Debug("stop ignored", "status", s.status)
		return nil
	}
	clip, err := s.deps.Capture.Stop()
	if err != nil {
		s.fail(fmt.Errorf("stop recording: %w", err))
		return err
	}
	if len(clip.Data) == 0 {
		s.fail(ErrNoAudio)
		return ErrNoAudio
	}

	s.setStatus(StatusTranscribing)
	s.publish(nil)

	key := s.cur.settings.APIKey
	go func() {
		text, err := s.deps.Transcriber.Transcribe(ctx, clip, key)
		s.post(ctx, transcribed{text: text, err: err})
	}()
	return nil
}

func (s *Session) post(ctx context.Context, res interface{}) {
	select {
	case s.results <- res:
	case <-ctx.Done():
	}
}

func (s *Session) cancel() error {
	if s.status != StatusRecording {
		return nil
	}
	err := s.deps.Capture.Cancel()
	if err != nil && !errors.Is(err, record.ErrNotRecording) {
		s.logger.Warn("cancel recording", "err", err)
	}
	s.setStatus(StatusIdle)
	s.publish(nil)
	return nil
}

func (s *Session) handleResult(ctx context.Context, res interface{}) {
	switch r := res.(type) {
	case transcribed:
		if s.status != StatusTranscribing {
			return
		}
		if r.err != nil {
			s.fail(r.err)
			return
		}
		s.conv = s.conv.Append(chat.Message{Role: chat.RoleUser, Content: r.text})
		s.setStatus(StatusEnriching)
		s.publish(nil)

		msgs := s.conv.Messages()
		key, prompt := s.cur.settings.APIKey, s.cur.prompt
		go func() {
			text, err := s.deps.Enricher.Complete(ctx, msgs, key, prompt)
			s.post(ctx, enriched{text: text, err: err})
		}()

	case enriched:
		if s.status != StatusEnriching {
			return
		}
		if r.err != nil {
			s.fail(r.err)
			return
		}
		s.conv = s.conv.Append(chat.Message{Role: chat.RoleAssistant, Content: r.text})
		s.setStatus(StatusDone)

		if _, err := s.deps.History.Record(s.conv.Messages(), s.cur.mode); err != nil {
			s.logger.Warn("history save failed", "err", err)
		}
		rep := s.deps.Deliverer.Deliver(ctx, r.text, s.cur.settings.MagicPaste)
		if rep != nil {
			s.logger.Info("delivered", "method", rep.Method, "fallback", rep.FellBack)
		}
		s.publish(&Event{Delivery: rep})
	}
}

func (s *Session) toggleVisibility() error {
	w := s.deps.Window
	if w == nil {
		return nil
	}
	if w.Visible() {
		return w.Hide()
	}
	if err := w.Show(); err != nil {
		return err
	}
	return w.Focus()
}

func (s *Session) switchMode(m chat.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q", m)
	}
	if s.status.Busy() {
		return ErrBusy
	}
	if !s.conv.Empty() {
		if _, err := s.deps.History.Record(s.conv.Messages(), s.mode); err != nil {
			s.logger.Warn("history save failed", "err", err)
		}
		s.conv = chat.Conversation{}
		s.lastErr = nil
		s.setStatus(StatusIdle)
	}
	s.mode = m
	if err := s.deps.Settings.SetMode(m); err != nil {
		s.logger.Warn("mode not saved", "err", err)
	}
	s.publish(nil)
	return nil
}

func (s *Session) selectHistory(id string) error {
	if s.status.Busy() {
		return ErrBusy
	}
	item, ok := s.deps.History.Select(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.conv = chat.NewConversation(item.Conversation()...)
	if item.Mode.Valid() {
		s.mode = item.Mode
	}
	s.lastErr = nil
	s.setStatus(StatusDone)
	s.publish(nil)
	return nil
}

func (s *Session) clearChat() error {
	if s.status.Busy() {
		return ErrBusy
	}
	s.conv = chat.Conversation{}
	s.lastErr = nil
	s.setStatus(StatusIdle)
	s.publish(nil)
	return nil
}
