package main

// echoflow - voice notes to polished text.
//
// Hold a hotkey, speak, release: the clip is transcribed by a remote
// speech-to-text endpoint, rewritten by a chat model under the active mode,
// and pasted into the focused application or copied to the clipboard.
//
// Build notes:
// - Recording uses cgo via PortAudio; the native library must be installed.
// - Global hotkeys and paste injection are Windows-only. Elsewhere, bind a
//   desktop shortcut to `echoflow ctl toggle`.
// - ffmpeg must be on PATH when TRANSCODE is enabled.

import "echoflow/cmd"

func main() {
	cmd.Execute()
}
