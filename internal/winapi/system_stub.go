//go:build !windows

package winapi

import "errors"

// System is only functional on Windows. The stub keeps the daemon buildable
// on other platforms so the portable engine and its tests compile everywhere.
type System struct{}

var errUnsupported = errors.New("window embedding requires windows")

func New() *System {
	return &System{}
}

func (s *System) StartProcess(path string) (*Process, error)      { return nil, errUnsupported }
func (s *System) TerminateProcess(pid int) error                  { return errUnsupported }
func (s *System) ProcessAlive(pid int) bool                       { return false }
func (s *System) ProcessImagePath(pid int) (string, error)        { return "", errUnsupported }
func (s *System) ProcessWindows(pid int) ([]WindowInfo, error)    { return nil, errUnsupported }
func (s *System) IsWindow(h HWND) bool                            { return false }
func (s *System) WindowTitle(h HWND) string                       { return "" }
func (s *System) WindowStyles(h HWND) (style, exStyle uint32)     { return 0, 0 }
func (s *System) SetWindowStyles(h HWND, style, ex uint32) error  { return errUnsupported }
func (s *System) SetParent(child, parent HWND) error              { return errUnsupported }
func (s *System) PositionWindow(h HWND, r Rect, show bool) error  { return errUnsupported }
func (s *System) ShowWindow(h HWND, visible bool) error           { return errUnsupported }
func (s *System) RaiseWindow(h HWND)                              {}
func (s *System) RedrawWindow(h HWND)                             {}
func (s *System) RefreshFrame(h HWND)                             {}
