package app

import (
	"context"
	"errors"
	"fmt"

	"echoflow/internal/chat"
	"echoflow/internal/control"
	"echoflow/internal/hotkey"
	"echoflow/internal/pipeline"
	"echoflow/internal/settings"

	"github.com/charmbracelet/log"
)

// Controller is the part of the session the control socket drives.
type Controller interface {
	Exec(ctx context.Context, cmd pipeline.Command) (pipeline.State, error)
}

// binder rebinds a hotkey and saves the new combo.
type binder func(p hotkey.Purpose, combo string) error

// commandHandler maps control socket commands onto session commands.
type commandHandler struct {
	ctrl Controller
	bind binder
	quit func()
}

var simpleCommands = map[string]pipeline.Command{
	control.CmdStart:        pipeline.StartRecording{},
	control.CmdStop:         pipeline.StopRecording{},
	control.CmdToggle:       pipeline.ToggleRecording{},
	control.CmdCancel:       pipeline.CancelRecording{},
	control.CmdToggleWindow: pipeline.ToggleVisibility{},
	control.CmdClear:        pipeline.ClearChat{},
	control.CmdStatus:       pipeline.GetState{},
}

// Handle implements control.Handler.
func (h *commandHandler) Handle(ctx context.Context, cmd control.Command) control.Response {
	if pc, ok := simpleCommands[cmd.Cmd]; ok {
		return h.exec(ctx, pc)
	}

	switch cmd.Cmd {
	case control.CmdMode:
		m, err := chat.ParseMode(cmd.Mode)
		if err != nil {
			return control.Response{Error: err.Error()}
		}
		return h.exec(ctx, pipeline.SwitchMode{Mode: m})
	case control.CmdReplay:
		if cmd.ID == "" {
			return control.Response{Error: "replay needs an id"}
		}
		return h.exec(ctx, pipeline.SelectHistory{ID: cmd.ID})
	case control.CmdBind:
		p, err := hotkey.ParsePurpose(cmd.Purpose)
		if err != nil {
			return control.Response{Error: err.Error()}
		}
		if _, err := hotkey.Parse(cmd.Combo); err != nil {
			return control.Response{Error: err.Error()}
		}
		if err := h.bind(p, cmd.Combo); err != nil {
			return control.Response{Error: err.Error()}
		}
		return h.exec(ctx, pipeline.GetState{})
	case control.CmdQuit:
		h.quit()
		return control.Response{OK: true}
	}
	return control.Response{Error: fmt.Sprintf("unknown command: %s", cmd.Cmd)}
}

func (h *commandHandler) exec(ctx context.Context, cmd pipeline.Command) control.Response {
	st, err := h.ctrl.Exec(ctx, cmd)
	resp := stateResponse(st)
	if err != nil {
		resp.OK = false
		resp.Error = err.Error()
	}
	return resp
}

func stateResponse(st pipeline.State) control.Response {
	resp := control.Response{
		OK:       true,
		Status:   string(st.Status),
		Mode:     string(st.Mode),
		Messages: control.IntPtr(len(st.Messages)),
	}
	if n := len(st.Messages); n > 0 && st.Messages[n-1].Role == chat.RoleAssistant {
		resp.LastReply = st.Messages[n-1].Content
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

// hotkeys owns the registry and keeps the settings in step with it.
type hotkeys struct {
	registry *hotkey.Registry
	settings *settings.Store
	actions  map[hotkey.Purpose]func()
	logger   *log.Logger
}

// bindAll registers every purpose with its saved combo. Hosts without global
// hotkey support are not an error.
func (h *hotkeys) bindAll() {
	snap := h.settings.Snapshot()
	for _, p := range hotkey.Purposes() {
		combo := snap.Hotkey(p)
		err := h.registry.Bind(p, combo, h.actions[p])
		switch {
		case errors.Is(err, hotkey.ErrNotSupported):
			h.logger.Info("global hotkeys unavailable; use `echoflow ctl` instead")
			return
		case err != nil:
			h.logger.Warn("hotkey not registered", "purpose", p, "combo", combo, "err", err)
		default:
			h.logger.Debug("hotkey registered", "purpose", p, "combo", combo)
		}
	}
}

// rebind moves p to combo and saves it. The previous binding stays active
// when the new one cannot be registered.
func (h *hotkeys) rebind(p hotkey.Purpose, combo string) error {
	c, err := hotkey.Parse(combo)
	if err != nil {
		return err
	}
	err = h.registry.Bind(p, c.String(), h.actions[p])
	if err != nil && !errors.Is(err, hotkey.ErrNotSupported) {
		return err
	}
	return h.settings.SetHotkey(p, c.String())
}
