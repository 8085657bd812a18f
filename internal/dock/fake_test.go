package dock

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/windock/windock/internal/winapi"
)

// quietLogger suppresses default slog output during tests.
func quietLogger(t *testing.T) {
	t.Helper()
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(99)})))
	t.Cleanup(func() { slog.SetDefault(old) })
}

type posCall struct {
	h    winapi.HWND
	rect winapi.Rect
	show bool
}

// fakeWindow scripts one window's behavior through the embed protocol.
type fakeWindow struct {
	info    winapi.WindowInfo
	alive   bool
	visible bool
	parent  winapi.HWND

	// appearAfterPass hides the window from enumeration until the nth
	// pass, simulating slow window creation. dieAfterPass destroys the
	// window once the nth pass runs.
	appearAfterPass int
	dieAfterPass    int
	refuseParent    bool
	dieOnParent     bool
	dieOnStyle      bool
	dieOnPosition   bool
}

// fakeWindowSystem is an in-memory WindowSystem. Pids are handed out
// sequentially from 1000, so the first StartProcess yields pid 1001.
type fakeWindowSystem struct {
	mu       sync.Mutex
	pidSeq   int
	startErr error
	// exitAfterStart marks spawned processes dead immediately while any
	// scripted windows linger, for liveness pre-check tests.
	exitAfterStart bool

	procs      map[int]bool
	images     map[int]string
	windows    map[winapi.HWND]*fakeWindow
	order      []winapi.HWND
	passes     map[int]int
	terminated []int
	positions  []posCall
	raised     map[winapi.HWND]int
	redrawn    map[winapi.HWND]int
	refreshed  map[winapi.HWND]int
}

func newFakeWindowSystem() *fakeWindowSystem {
	return &fakeWindowSystem{
		pidSeq:    1000,
		procs:     make(map[int]bool),
		images:    make(map[int]string),
		windows:   make(map[winapi.HWND]*fakeWindow),
		passes:    make(map[int]int),
		raised:    make(map[winapi.HWND]int),
		redrawn:   make(map[winapi.HWND]int),
		refreshed: make(map[winapi.HWND]int),
	}
}

// addWindow registers a live window. Enumeration preserves insertion order.
func (f *fakeWindowSystem) addWindow(info winapi.WindowInfo) *fakeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWindow{info: info, alive: true, visible: info.Visible}
	f.windows[info.Handle] = w
	f.order = append(f.order, info.Handle)
	return w
}

func (f *fakeWindowSystem) killWindow(h winapi.HWND) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok {
		w.alive = false
	}
}

func (f *fakeWindowSystem) terminations(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.terminated {
		if p == pid {
			n++
		}
	}
	return n
}

func (f *fakeWindowSystem) positionsFor(h winapi.HWND) []posCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []posCall
	for _, c := range f.positions {
		if c.h == h {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeWindowSystem) StartProcess(path string) (*winapi.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.pidSeq++
	f.procs[f.pidSeq] = !f.exitAfterStart
	return &winapi.Process{Pid: f.pidSeq}, nil
}

func (f *fakeWindowSystem) TerminateProcess(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pid)
	f.procs[pid] = false
	for _, w := range f.windows {
		if w.info.PID == pid {
			w.alive = false
		}
	}
	return nil
}

func (f *fakeWindowSystem) ProcessAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[pid]
}

func (f *fakeWindowSystem) ProcessImagePath(pid int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.images[pid]; ok {
		return p, nil
	}
	return "", fmt.Errorf("no image path for pid %d", pid)
}

func (f *fakeWindowSystem) ProcessWindows(pid int) ([]winapi.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes[pid]++
	var out []winapi.WindowInfo
	for _, h := range f.order {
		w := f.windows[h]
		if w.info.PID == pid && w.dieAfterPass > 0 && f.passes[pid] >= w.dieAfterPass {
			w.alive = false
		}
		if w.info.PID != pid || !w.alive {
			continue
		}
		if w.appearAfterPass > 0 && f.passes[pid] < w.appearAfterPass {
			continue
		}
		info := w.info
		info.Visible = w.visible
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeWindowSystem) IsWindow(h winapi.HWND) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	return ok && w.alive
}

func (f *fakeWindowSystem) WindowTitle(h winapi.HWND) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok && w.alive {
		return w.info.Title
	}
	return ""
}

func (f *fakeWindowSystem) WindowStyles(h winapi.HWND) (uint32, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok {
		return w.info.Style, w.info.ExStyle
	}
	return 0, 0
}

func (f *fakeWindowSystem) SetWindowStyles(h winapi.HWND, style, exStyle uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || !w.alive {
		return fmt.Errorf("set styles %s: invalid handle", h)
	}
	w.info.Style, w.info.ExStyle = style, exStyle
	if w.dieOnStyle {
		w.alive = false
	}
	return nil
}

func (f *fakeWindowSystem) SetParent(child, parent winapi.HWND) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[child]
	if !ok || !w.alive {
		return fmt.Errorf("set parent %s: invalid handle", child)
	}
	if w.refuseParent {
		return winapi.ErrReparentRefused
	}
	w.parent = parent
	if w.dieOnParent {
		w.alive = false
	}
	return nil
}

func (f *fakeWindowSystem) PositionWindow(h winapi.HWND, r winapi.Rect, show bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || !w.alive {
		return fmt.Errorf("position window %s: invalid handle", h)
	}
	f.positions = append(f.positions, posCall{h: h, rect: r, show: show})
	if show {
		w.visible = true
	}
	if w.dieOnPosition {
		w.alive = false
	}
	return nil
}

func (f *fakeWindowSystem) ShowWindow(h winapi.HWND, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || !w.alive {
		return fmt.Errorf("show window %s: invalid handle", h)
	}
	w.visible = visible
	return nil
}

func (f *fakeWindowSystem) RaiseWindow(h winapi.HWND) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised[h]++
}

func (f *fakeWindowSystem) RedrawWindow(h winapi.HWND) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redrawn[h]++
}

func (f *fakeWindowSystem) RefreshFrame(h winapi.HWND) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed[h]++
}
