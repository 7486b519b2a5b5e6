// Package control lets other processes drive a running instance over a Unix
// socket using NDJSON: one command line in, one response line out.
package control

// Command names.
const (
	CmdStart        = "start"
	CmdStop         = "stop"
	CmdToggle       = "toggle"
	CmdCancel       = "cancel"
	CmdToggleWindow = "toggle-window"
	CmdStatus       = "status"
	CmdMode         = "mode"
	CmdBind         = "bind"
	CmdClear        = "clear"
	CmdReplay       = "replay"
	CmdQuit         = "quit"
)

// Command is sent from a client to the running app.
type Command struct {
	Cmd     string `json:"cmd"`
	Mode    string `json:"mode,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Combo   string `json:"combo,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Response is returned after processing a command.
type Response struct {
	OK        bool   `json:"ok"`
	Status    string `json:"status,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Messages  *int   `json:"messages,omitempty"`
	LastReply string `json:"lastReply,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IntPtr returns a pointer to an int value.
func IntPtr(n int) *int { return &n }
