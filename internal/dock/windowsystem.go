package dock

import (
	"github.com/windock/windock/internal/winapi"
)

// WindowSystem is the OS capability surface the engine runs on. The real
// implementation is winapi.System; tests inject a fake so the whole
// launch/embed/watch lifecycle runs without a windowing system.
type WindowSystem interface {
	// StartProcess launches the executable without waiting for UI.
	StartProcess(path string) (*winapi.Process, error)
	// TerminateProcess force-kills by pid.
	TerminateProcess(pid int) error
	// ProcessAlive reports whether pid is still running.
	ProcessAlive(pid int) bool
	// ProcessImagePath returns the executable path backing pid.
	ProcessImagePath(pid int) (string, error)

	// ProcessWindows enumerates the top-level windows owned by pid.
	ProcessWindows(pid int) ([]winapi.WindowInfo, error)
	// IsWindow reports whether the handle still refers to a live window.
	IsWindow(h winapi.HWND) bool
	// WindowTitle returns the current title text, empty if none.
	WindowTitle(h winapi.HWND) string
	// WindowStyles returns the style and extended-style bits.
	WindowStyles(h winapi.HWND) (style, exStyle uint32)
	// SetWindowStyles replaces the style and extended-style bits.
	SetWindowStyles(h winapi.HWND, style, exStyle uint32) error
	// SetParent reparents child under parent; parent 0 restores the
	// desktop. Refusal surfaces as winapi.ErrReparentRefused.
	SetParent(child, parent winapi.HWND) error
	// PositionWindow applies a combined move+resize with forced redraw.
	PositionWindow(h winapi.HWND, r winapi.Rect, show bool) error
	// ShowWindow toggles visibility.
	ShowWindow(h winapi.HWND, visible bool) error
	// RaiseWindow brings the window to top and foreground.
	RaiseWindow(h winapi.HWND)
	// RedrawWindow forces a repaint of the window and its children.
	RedrawWindow(h winapi.HWND)
	// RefreshFrame re-applies frame styles without moving the window.
	RefreshFrame(h winapi.HWND)
}
