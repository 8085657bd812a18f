package dock

import "github.com/windock/windock/internal/winapi"

// Insets are the fixed chrome regions of the host window that embedded
// windows must not cover.
type Insets struct {
	Sidebar int `json:"sidebar"`
	Header  int `json:"header"`
	TabBar  int `json:"tab_bar"`
}

// ComputeBounds returns the host-relative rectangle available for an
// embedded window given the host client size. Pure; every code path that
// needs embed geometry goes through here so initial embed, resize and show
// always agree.
func ComputeBounds(hostWidth, hostHeight int, in Insets) winapi.Rect {
	r := winapi.Rect{
		X:      in.Sidebar,
		Y:      in.Header + in.TabBar,
		Width:  hostWidth - in.Sidebar,
		Height: hostHeight - in.Header - in.TabBar,
	}
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}
