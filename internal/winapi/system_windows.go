package winapi

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"unsafe"

	psproc "github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procBringWindowToTop         = user32.NewProc("BringWindowToTop")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetParent                = user32.NewProc("GetParent")
	procGetWindowLongW           = user32.NewProc("GetWindowLongW")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procInvalidateRect           = user32.NewProc("InvalidateRect")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procRedrawWindow             = user32.NewProc("RedrawWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procSetParent                = user32.NewProc("SetParent")
	procSetWindowLongW           = user32.NewProc("SetWindowLongW")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procShowWindow               = user32.NewProc("ShowWindow")
	procUpdateWindow             = user32.NewProc("UpdateWindow")

	procSetLastError = kernel32.NewProc("SetLastError")
)

const (
	swHide = 0
	swShow = 5

	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoZOrder     = 0x0004
	swpShowWindow   = 0x0040
	swpFrameChanged = 0x0020

	rdwAllChildren = 0x0080
	rdwUpdateNow   = 0x0100

	gwlStyle   = -16
	gwlExStyle = -20

	errorInvalidParameter = 87
)

// System talks to the live Win32 windowing and process APIs.
type System struct{}

// New returns the real Win32 implementation.
func New() *System {
	return &System{}
}

// StartProcess launches the executable without waiting for it to show UI.
func (s *System) StartProcess(path string) (*Process, error) {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Process{Pid: cmd.Process.Pid, Handle: cmd.Process}, nil
}

// TerminateProcess force-kills a process by pid.
func (s *System) TerminateProcess(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)
	if err := windows.TerminateProcess(h, 0); err != nil {
		return fmt.Errorf("terminate process %d: %w", pid, err)
	}
	return nil
}

func (s *System) ProcessAlive(pid int) bool {
	alive, err := psproc.PidExists(int32(pid))
	return err == nil && alive
}

func (s *System) ProcessImagePath(pid int) (string, error) {
	p, err := psproc.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Exe()
}

// windowEnum collects enumeration results. EnumWindows gives us no way to
// pass a closure through cleanly, so the callback is created once and reads
// package state guarded by enumMu.
type windowEnum struct {
	pid     int
	windows []WindowInfo
}

var (
	enumMu       sync.Mutex
	enumState    *windowEnum
	enumCallback = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		var pid uint32
		procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		if int(pid) != enumState.pid {
			return 1
		}
		h := HWND(hwnd)
		enumState.windows = append(enumState.windows, WindowInfo{
			Handle:    h,
			PID:       int(pid),
			Title:     windowText(h),
			Class:     className(h),
			Visible:   isWindowVisible(h),
			HasParent: parent(h) != 0,
			Style:     getWindowLong(h, gwlStyle),
			ExStyle:   getWindowLong(h, gwlExStyle),
		})
		return 1
	})
)

// ProcessWindows returns every top-level window owned by pid, with the
// attributes the locator heuristics need.
func (s *System) ProcessWindows(pid int) ([]WindowInfo, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumState = &windowEnum{pid: pid}
	defer func() { enumState = nil }()

	r1, _, err := procEnumWindows.Call(enumCallback, 0)
	if r1 == 0 && len(enumState.windows) == 0 {
		return nil, fmt.Errorf("enumerate windows: %w", err)
	}
	return enumState.windows, nil
}

func (s *System) IsWindow(h HWND) bool {
	r1, _, _ := procIsWindow.Call(uintptr(h))
	return r1 != 0
}

func (s *System) WindowTitle(h HWND) string {
	return windowText(h)
}

func (s *System) WindowStyles(h HWND) (style, exStyle uint32) {
	return getWindowLong(h, gwlStyle), getWindowLong(h, gwlExStyle)
}

func (s *System) SetWindowStyles(h HWND, style, exStyle uint32) error {
	if err := setWindowLong(h, gwlStyle, style); err != nil {
		return fmt.Errorf("set style: %w", err)
	}
	if err := setWindowLong(h, gwlExStyle, exStyle); err != nil {
		return fmt.Errorf("set extended style: %w", err)
	}
	return nil
}

// SetParent reparents child under parent (0 restores it to the desktop).
// The Win32 refusal code for embedding-hostile targets maps to
// ErrReparentRefused.
func (s *System) SetParent(child, parent HWND) error {
	// SetParent legitimately returns NULL when the previous parent was the
	// desktop, so the error state must be read from GetLastError alone.
	procSetLastError.Call(0)
	r1, _, err := procSetParent.Call(uintptr(child), uintptr(parent))
	if r1 != 0 {
		return nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok || errno == 0 {
		return nil
	}
	if errno == errorInvalidParameter {
		return ErrReparentRefused
	}
	return fmt.Errorf("set parent: %w", err)
}

// PositionWindow applies a combined move+resize with a forced frame redraw.
func (s *System) PositionWindow(h HWND, r Rect, show bool) error {
	flags := uintptr(swpFrameChanged | swpNoZOrder)
	if show {
		flags |= swpShowWindow
	}
	r1, _, err := procSetWindowPos.Call(uintptr(h), 0,
		uintptr(r.X), uintptr(r.Y), uintptr(r.Width), uintptr(r.Height), flags)
	if r1 == 0 {
		return fmt.Errorf("set window pos: %w", err)
	}
	return nil
}

func (s *System) ShowWindow(h HWND, visible bool) error {
	if !s.IsWindow(h) {
		return fmt.Errorf("show window %s: invalid handle", h)
	}
	cmd := uintptr(swHide)
	if visible {
		cmd = swShow
	}
	procShowWindow.Call(uintptr(h), cmd)
	return nil
}

// RaiseWindow brings the window to the top of the z-order and gives it
// foreground focus. Applications refuse reparenting while minimized or
// hidden, so this runs before SetParent.
func (s *System) RaiseWindow(h HWND) {
	procBringWindowToTop.Call(uintptr(h))
	procSetForegroundWindow.Call(uintptr(h))
}

// RedrawWindow forces a full repaint of the window and its children.
func (s *System) RedrawWindow(h HWND) {
	procInvalidateRect.Call(uintptr(h), 0, 1)
	procUpdateWindow.Call(uintptr(h))
	procRedrawWindow.Call(uintptr(h), 0, 0, uintptr(rdwUpdateNow|rdwAllChildren))
}

// RefreshFrame re-applies the current frame styles without moving the window.
func (s *System) RefreshFrame(h HWND) {
	procSetWindowPos.Call(uintptr(h), 0, 0, 0, 0, 0,
		uintptr(swpNoMove|swpNoSize|swpNoZOrder|swpFrameChanged))
}

func windowText(h HWND) string {
	var buf [512]uint16
	r1, _, _ := procGetWindowTextW.Call(uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r1 == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:r1])
}

func className(h HWND) string {
	var buf [256]uint16
	r1, _, _ := procGetClassNameW.Call(uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r1 == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:r1])
}

func isWindowVisible(h HWND) bool {
	r1, _, _ := procIsWindowVisible.Call(uintptr(h))
	return r1 != 0
}

func parent(h HWND) HWND {
	r1, _, _ := procGetParent.Call(uintptr(h))
	return HWND(r1)
}

func getWindowLong(h HWND, index int32) uint32 {
	r1, _, _ := procGetWindowLongW.Call(uintptr(h), uintptr(index))
	return uint32(r1)
}

func setWindowLong(h HWND, index int32, value uint32) error {
	procSetLastError.Call(0)
	r1, _, err := procSetWindowLongW.Call(uintptr(h), uintptr(index), uintptr(value))
	if r1 == 0 {
		if errno, ok := err.(syscall.Errno); ok && errno != 0 {
			return err
		}
	}
	return nil
}
