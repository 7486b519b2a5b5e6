//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/charmbracelet/log"
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	wmHotkey    = 0x0312
	wmApp       = 0x8000
	pmNoRemove  = 0x0000
	modNoRepeat = 0x4000

	whKeyboardLL  = 13
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	llkhfInjected = 0x10

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

type kbdLLHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// NewHost starts the hotkey thread. With hook set it installs a low-level
// keyboard hook that swallows matching key presses; otherwise it uses
// RegisterHotKey.
func NewHost(hook bool, logger *log.Logger) (Host, error) {
	if logger == nil {
		logger = log.Default()
	}
	if hook {
		h := &hookHost{logger: logger, lookup: make(map[uint32][]hookEntry)}
		return h, h.start()
	}
	h := &msgHost{logger: logger, reqs: make(chan request, 8)}
	return h, h.start()
}

// msgHost owns a locked OS thread. RegisterHotKey binds to the calling
// thread, so every register/unregister is marshalled onto it.
type msgHost struct {
	logger   *log.Logger
	threadID uint32
	reqs     chan request
}

type request struct {
	register bool
	combo    Combo
	fn       func()
	reply    chan error
}

func (h *msgHost) start() error {
	ready := make(chan error, 1)
	go h.loop(ready)
	select {
	case err := <-ready:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout starting hotkey thread")
	}
}

func (h *msgHost) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var msg winMsg
	// The thread has no message queue until it touches one.
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, wmApp, wmApp, pmNoRemove)
	tid, _, _ := procGetCurrentThreadId.Call()
	h.threadID = uint32(tid)
	ready <- nil

	ids := make(map[Combo]int)
	handlers := make(map[int]func())
	nextID := 1

	apply := func(req request) error {
		if req.register {
			if _, dup := ids[req.combo]; dup {
				return fmt.Errorf("%s already registered", req.combo)
			}
			id := nextID
			nextID++
			r, _, callErr := procRegisterHotKey.Call(0, uintptr(id), uintptr(uint32(req.combo.Mods)|modNoRepeat), uintptr(req.combo.VK))
			if r == 0 {
				return fmt.Errorf("RegisterHotKey failed for %s: %v", req.combo, callErr)
			}
			ids[req.combo] = id
			handlers[id] = req.fn
			h.logger.Debug("RegisterHotKey succeeded", "id", id, "combo", req.combo)
			return nil
		}
		id, ok := ids[req.combo]
		if !ok {
			return fmt.Errorf("%s not registered", req.combo)
		}
		delete(ids, req.combo)
		delete(handlers, id)
		if r, _, callErr := procUnregisterHotKey.Call(0, uintptr(id)); r == 0 {
			return fmt.Errorf("UnregisterHotKey failed for %s: %v", req.combo, callErr)
		}
		return nil
	}

	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(ret) == -1 {
			h.logger.Error("GetMessageW error; exiting hotkey loop")
			return
		}
		if ret == 0 {
			return
		}
		switch msg.Message {
		case wmHotkey:
			if fn := handlers[int(msg.WParam)]; fn != nil {
				fn()
			}
		case wmApp:
		drain:
			for {
				select {
				case req := <-h.reqs:
					req.reply <- apply(req)
				default:
					break drain
				}
			}
		}
	}
}

func (h *msgHost) send(req request) error {
	req.reply = make(chan error, 1)
	h.reqs <- req
	if r, _, err := procPostThreadMessageW.Call(uintptr(h.threadID), wmApp, 0, 0); r == 0 {
		return fmt.Errorf("PostThreadMessageW: %v", err)
	}
	select {
	case err := <-req.reply:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout waiting for hotkey thread")
	}
}

func (h *msgHost) Register(c Combo, fn func()) error {
	return h.send(request{register: true, combo: c, fn: fn})
}

func (h *msgHost) Unregister(c Combo) error {
	return h.send(request{combo: c})
}

// hookHost sees every key press through WH_KEYBOARD_LL and swallows the ones
// that match, so the focused app never receives them.
type hookHost struct {
	logger *log.Logger
	mu     sync.Mutex
	lookup map[uint32][]hookEntry
}

type hookEntry struct {
	mods Modifier
	fn   func()
}

func (h *hookHost) Register(c Combo, fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.lookup[c.VK] {
		if e.mods == c.Mods {
			return fmt.Errorf("%s already registered", c)
		}
	}
	h.lookup[c.VK] = append(h.lookup[c.VK], hookEntry{mods: c.Mods, fn: fn})
	return nil
}

func (h *hookHost) Unregister(c Combo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.lookup[c.VK]
	for i, e := range entries {
		if e.mods == c.Mods {
			h.lookup[c.VK] = append(entries[:i:i], entries[i+1:]...)
			if len(h.lookup[c.VK]) == 0 {
				delete(h.lookup, c.VK)
			}
			return nil
		}
	}
	return fmt.Errorf("%s not registered", c)
}

func (h *hookHost) match(vk uint32) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.lookup[vk] {
		if modsHeld(e.mods) {
			return e.fn
		}
	}
	return nil
}

func keyDown(vk uintptr) bool {
	st, _, _ := procGetAsyncKeyState.Call(vk)
	return st&0x8000 != 0
}

func modsHeld(required Modifier) bool {
	if required&ModCtrl != 0 && !keyDown(vkControl) {
		return false
	}
	if required&ModAlt != 0 && !keyDown(vkMenu) {
		return false
	}
	if required&ModShift != 0 && !keyDown(vkShift) {
		return false
	}
	if required&ModMeta != 0 && !keyDown(vkLWin) && !keyDown(vkRWin) {
		return false
	}
	return true
}

func (h *hookHost) start() error {
	ready := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		swallowed := make(map[uint32]bool)
		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) >= 0 {
				msg := uint32(wParam)
				k := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
				if k.flags&llkhfInjected == 0 {
					switch msg {
					case wmKeyDown, wmSysKeyDown:
						if fn := h.match(k.vkCode); fn != nil {
							swallowed[k.vkCode] = true
							go fn()
							return 1
						}
					case wmKeyUp, wmSysKeyUp:
						if swallowed[k.vkCode] {
							delete(swallowed, k.vkCode)
							return 1
						}
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(whKeyboardLL, callback, 0, 0)
		if hook == 0 {
			ready <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		h.logger.Debug("low-level hook installed")
		ready <- nil

		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
		h.logger.Debug("low-level hook uninstalled")
	}()

	select {
	case err := <-ready:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout installing low-level hook")
	}
}
