package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"echoflow/internal/app"
	"echoflow/internal/chat"
	"echoflow/internal/config"
	"echoflow/internal/control"
	"echoflow/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"version flag", []string{"--version"}, false},
		{"help flag", []string{"--help"}, false},
		{"unknown command", []string{"nonexistent-command"}, true},
		{"bad flag value", []string{"--channels", "two", "history", "list"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--data-dir", dir, "init-config")
	if err != nil {
		t.Fatalf("init-config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if !strings.Contains(out, path) {
		t.Fatalf("output = %q", out)
	}
	if cfg, err := config.Load(path); err != nil || cfg != config.DefaultConfig() {
		t.Fatalf("written config = %+v, %v", cfg, err)
	}

	if _, err := execute(t, "--data-dir", dir, "init-config"); err == nil {
		t.Fatal("second run should refuse to overwrite")
	}
	if _, err := execute(t, "--data-dir", dir, "init-config", "--force"); err != nil {
		t.Fatalf("--force: %v", err)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"CHANNELS": 7}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--data-dir", dir, "history", "list"); err == nil || !strings.Contains(err.Error(), "CHANNELS") {
		t.Fatalf("expected CHANNELS validation error, got %v", err)
	}
}

func TestSettingsSetAndShow(t *testing.T) {
	dir := t.TempDir()
	steps := [][]string{
		{"settings", "set", "apikey", "gsk_abcdefgh1234"},
		{"settings", "set", "mode", "meeting"},
		{"settings", "set", "magicpaste", "yes"},
		{"settings", "set", "hotkey-rec", "ctrl+shift+f2"},
	}
	for _, args := range steps {
		if _, err := execute(t, append([]string{"--data-dir", dir}, args...)...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := execute(t, "--data-dir", dir, "settings", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"api_key: gsk_********1234", "mode: meeting", "magic_paste: true", "hotkey_rec: Ctrl+Shift+F2"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "--data-dir", dir, "settings", "show", "--reveal")
	if err != nil || !strings.Contains(out, "gsk_abcdefgh1234") {
		t.Fatalf("--reveal output = %q, %v", out, err)
	}
}

func TestSettingsSetRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	tests := [][]string{
		{"settings", "set", "mode", "poetry"},
		{"settings", "set", "magicpaste", "maybe"},
		{"settings", "set", "colour", "blue"},
		{"settings", "set", "hotkey-app", "Alt+Shift+"},
		// Alt+Shift+R is the default recording hotkey.
		{"settings", "set", "hotkey-app", "shift+alt+r"},
	}
	for _, args := range tests {
		if _, err := execute(t, append([]string{"--data-dir", dir}, args...)...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"short":            "*****",
		"gsk_abcdefgh1234": "gsk_********1234",
	}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func seedHistory(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	st, err := app.OpenState(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}
	defer st.Close()
	it, err := st.History.Record([]chat.Message{
		{Role: chat.RoleUser, Content: "we agreed to ship on friday"},
		{Role: chat.RoleAssistant, Content: "## Decisions\n- Ship Friday"},
	}, chat.ModeMeeting)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return it.ID
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--data-dir", dir, "history", "list")
	if err != nil || !strings.Contains(out, "No history yet") {
		t.Fatalf("empty list = %q, %v", out, err)
	}

	id := seedHistory(t, dir)
	out, err = execute(t, "--data-dir", dir, "history", "list")
	if err != nil || !strings.Contains(out, id) || !strings.Contains(out, "Meeting Notes") {
		t.Fatalf("list = %q, %v", out, err)
	}

	out, err = execute(t, "--data-dir", dir, "history", "show", id)
	if err != nil || !strings.Contains(out, "Ship Friday") || !strings.Contains(out, "ASSISTANT") {
		t.Fatalf("show = %q, %v", out, err)
	}
	if _, err := execute(t, "--data-dir", dir, "history", "show", "missing"); err == nil {
		t.Fatal("show of unknown id should fail")
	}

	out, err = execute(t, "--data-dir", dir, "history", "clear")
	if err != nil || !strings.Contains(out, "1 conversations") {
		t.Fatalf("clear = %q, %v", out, err)
	}
}

func TestExportCommand(t *testing.T) {
	dir, outDir := t.TempDir(), t.TempDir()
	if _, err := execute(t, "--data-dir", dir, "export", "--dir", outDir); err == nil {
		t.Fatal("export without history should fail")
	}
	if _, err := execute(t, "--data-dir", dir, "export", "--format", "docx"); err == nil {
		t.Fatal("unknown format should fail")
	}

	id := seedHistory(t, dir)
	for _, format := range []string{"md", "json", "yaml", "pdf"} {
		if _, err := execute(t, "--data-dir", dir, "export", "--format", format, "--id", id, "--dir", outDir); err != nil {
			t.Fatalf("export %s: %v", format, err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(outDir, "echoflow-export-*"))
	if len(files) != 4 {
		t.Fatalf("exported files = %v", files)
	}
}

func TestTranscribeNeedsAPIKey(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "memo.wav")
	if err := os.WriteFile(in, make([]byte, 64), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--data-dir", dir, "transcribe", in); !errors.Is(err, app.ErrNoAPIKey) {
		t.Fatalf("error = %v, want ErrNoAPIKey", err)
	}
	if _, err := execute(t, "--data-dir", dir, "transcribe", in, "--mode", "poetry"); err == nil {
		t.Fatal("unknown mode should fail")
	}
}

func TestCtlNotRunning(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "ctl", "status")
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Fatalf("error = %v", err)
	}
}

func TestCtlTalksToServer(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	var (
		mu  sync.Mutex
		got []control.Command
	)
	srv := control.NewServer(config.SocketPath(&cfg), control.HandlerFunc(func(_ context.Context, c control.Command) control.Response {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
		if c.Cmd == control.CmdMode && c.Mode == "poetry" {
			return control.Response{Error: "unknown mode"}
		}
		return control.Response{OK: true, Status: "done", Mode: "ask", Messages: control.IntPtr(2), LastReply: "42"}
	}), logging.Discard())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	defer srv.Close()

	out, err := execute(t, "--data-dir", dir, "ctl", "status")
	if err != nil || !strings.Contains(out, "done") || !strings.Contains(out, "2 messages") || !strings.Contains(out, "42") {
		t.Fatalf("status = %q, %v", out, err)
	}

	out, err = execute(t, "--data-dir", dir, "ctl", "bind", "rec", "Alt+Shift+F9", "--json")
	if err != nil || !strings.Contains(out, `"ok":true`) {
		t.Fatalf("bind = %q, %v", out, err)
	}

	if _, err := execute(t, "--data-dir", dir, "ctl", "mode", "poetry"); err == nil || err.Error() != "unknown mode" {
		t.Fatalf("mode error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[1].Purpose != "rec" || got[1].Combo != "Alt+Shift+F9" {
		t.Fatalf("server saw %+v", got)
	}
}
