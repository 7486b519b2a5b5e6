package tui

// Key binding constants used in handleKey.
const (
	KeyQuit       = "q"
	KeyCtrlC      = "ctrl+c"
	KeyRecord     = "r"
	KeyCancel     = "x"
	KeyMode       = "m"
	KeyClear      = "c"
	KeyHistory    = "h"
	KeyExportMD   = "e"
	KeyExportPDF  = "p"
	KeyEnter      = "enter"
	KeyEsc        = "esc"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyJ          = "j"
	KeyK          = "k"
	KeyHideWindow = "w"
)
