// Package winapi is the thin Win32 layer underneath the embedding engine.
// It exposes window handles, style bits and a System implementation of the
// OS calls the engine needs. Everything syscall-shaped lives in the
// windows-only file; this file holds the portable types so the engine and
// its tests build on any OS.
package winapi

import (
	"errors"
	"fmt"
	"os"
)

// HWND is an opaque top-level window handle.
type HWND uintptr

func (h HWND) String() string {
	return fmt.Sprintf("0x%X", uintptr(h))
}

// Rect is a host-relative window rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowInfo is one top-level window as seen during enumeration.
type WindowInfo struct {
	Handle    HWND
	PID       int
	Title     string
	Class     string
	Visible   bool
	HasParent bool
	Style     uint32
	ExStyle   uint32
}

// Process couples a pid with the handle of a process we spawned ourselves.
// Handle is nil for processes we only know by pid.
type Process struct {
	Pid    int
	Handle *os.Process
}

// Release drops the OS handle. Safe on nil and on pid-only processes.
func (p *Process) Release() error {
	if p == nil || p.Handle == nil {
		return nil
	}
	return p.Handle.Release()
}

// ErrReparentRefused is returned by SetParent when the target application or
// an OS policy rejects the foreign parent (ERROR_INVALID_PARAMETER).
var ErrReparentRefused = errors.New("window refuses reparenting")

// Window style bits, as defined by the Win32 API.
const (
	WS_BORDER      = 0x00800000
	WS_CAPTION     = 0x00C00000
	WS_CHILD       = 0x40000000
	WS_MAXIMIZEBOX = 0x00010000
	WS_MINIMIZEBOX = 0x00020000
	WS_POPUP       = 0x80000000
	WS_SYSMENU     = 0x00080000
	WS_THICKFRAME  = 0x00040000
	WS_VISIBLE     = 0x10000000
)

// Extended window style bits.
const (
	WS_EX_CLIENTEDGE    = 0x00000200
	WS_EX_DLGMODALFRAME = 0x00000001
	WS_EX_STATICEDGE    = 0x00020000
	WS_EX_TOOLWINDOW    = 0x00000080
	WS_EX_WINDOWEDGE    = 0x00000100
)
