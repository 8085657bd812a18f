package dock

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/windock/windock/internal/winapi"
)

func testConfig() Config {
	return Config{
		Insets:         Insets{Sidebar: 300, Header: 50, TabBar: 36},
		LocateDeadline: 200 * time.Millisecond,
		LocateInterval: 2 * time.Millisecond,
		StabilizeDelay: time.Millisecond,
		VerifyChecks:   3,
		VerifyInterval: time.Millisecond,
		SweepInterval:  10 * time.Millisecond,
	}
}

// newTestManager returns a manager with an attached 1200x800 host and fast
// timing. The first StartProcess on the fake yields pid 1001.
func newTestManager(t *testing.T) (*Manager, *fakeWindowSystem) {
	t.Helper()
	quietLogger(t)
	fs := newFakeWindowSystem()
	m := NewManager(fs, testConfig())
	if err := m.AttachHost(testHost, 1200, 800); err != nil {
		t.Fatalf("attach host: %v", err)
	}
	t.Cleanup(m.Shutdown)
	return m, fs
}

func TestManager_LaunchAndEmbed(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	tab, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1")
	if err != nil {
		t.Fatalf("expected successful launch, got %v", err)
	}
	if tab.ID != "tab-1" {
		t.Errorf("expected tab id tab-1, got %q", tab.ID)
	}
	if tab.PID != 1001 {
		t.Errorf("expected pid 1001, got %d", tab.PID)
	}
	if tab.Handle != 0x10 {
		t.Errorf("expected handle 0x10, got %s", tab.Handle)
	}
	want := winapi.Rect{X: 300, Y: 86, Width: 900, Height: 714}
	if tab.Geometry != want {
		t.Errorf("expected geometry %+v, got %+v", want, tab.Geometry)
	}
	if !tab.Visible {
		t.Error("expected tab visible after embed")
	}
	if tab.Status != StatusEmbedded {
		t.Errorf("expected status %q, got %q", StatusEmbedded, tab.Status)
	}
	if tab.DisplayName != "Notepad" {
		t.Errorf("expected display name Notepad, got %q", tab.DisplayName)
	}

	tabs := m.EmbeddedWindows()
	if len(tabs) != 1 {
		t.Fatalf("expected 1 registered tab, got %d", len(tabs))
	}
	if len(m.Launching()) != 0 {
		t.Errorf("expected no launches in flight, got %v", m.Launching())
	}
}

func TestManager_LaunchAndEmbed_NoHost(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	m := NewManager(fs, testConfig())
	t.Cleanup(m.Shutdown)

	_, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1")
	if !errors.Is(err, ErrNoHost) {
		t.Errorf("expected ErrNoHost, got %v", err)
	}
}

func TestManager_LaunchAndEmbed_EmptyTabID(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", ""); err == nil {
		t.Error("expected error for empty tab id")
	}
}

func TestManager_LaunchAndEmbed_EmptyPath(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.LaunchAndEmbed("", "tab-1")
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("expected ErrLaunchFailed, got %v", err)
	}
}

func TestManager_LaunchAndEmbed_DuplicateRegistered(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("first launch: %v", err)
	}
	_, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1")
	if !errors.Is(err, ErrTabActive) {
		t.Errorf("expected ErrTabActive, got %v", err)
	}
	if n := len(m.EmbeddedWindows()); n != 1 {
		t.Errorf("expected 1 registered tab, got %d", n)
	}
}

func TestManager_LaunchAndEmbed_DuplicateInFlight(t *testing.T) {
	m, fs := newTestManager(t)
	// The window only appears after a number of polls, holding the first
	// launch in flight long enough to race a duplicate against it.
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Slow App", Visible: true})
	w.appearAfterPass = 10

	done := make(chan error, 1)
	go func() {
		_, err := m.LaunchAndEmbed("C:/apps/slow.exe", "tab-1")
		done <- err
	}()

	waitUntil(t, time.Second, func() bool {
		_, ok := m.Launching()["tab-1"]
		return ok
	})

	if _, err := m.LaunchAndEmbed("C:/apps/slow.exe", "tab-1"); !errors.Is(err, ErrTabActive) {
		t.Errorf("expected ErrTabActive for in-flight duplicate, got %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("original launch failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("original launch did not finish")
	}
	if n := len(m.EmbeddedWindows()); n != 1 {
		t.Errorf("expected 1 registered tab, got %d", n)
	}
}

func TestManager_LaunchAndEmbed_StartFailure(t *testing.T) {
	m, fs := newTestManager(t)
	fs.startErr = fmt.Errorf("file not found")

	_, err := m.LaunchAndEmbed("C:/apps/missing.exe", "tab-1")
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("expected ErrLaunchFailed, got %v", err)
	}
	if n := len(m.Launching()); n != 0 {
		t.Errorf("expected reservation released, got %d in flight", n)
	}
	if n := len(fs.terminated); n != 0 {
		t.Errorf("expected no terminations for a failed start, got %d", n)
	}
}

func TestManager_LaunchAndEmbed_LocateTimeoutCleansUp(t *testing.T) {
	m, fs := newTestManager(t)
	// No window ever appears for the spawned pid.

	_, err := m.LaunchAndEmbed("C:/apps/headless.exe", "tab-1")
	if !errors.Is(err, ErrLocateTimeout) {
		t.Fatalf("expected ErrLocateTimeout, got %v", err)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected the orphan terminated exactly once, got %d", n)
	}
	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry, got %d tabs", n)
	}
	if n := len(m.Launching()); n != 0 {
		t.Errorf("expected reservation released, got %d in flight", n)
	}
}

func TestManager_LaunchAndEmbed_ProcessExitsBeforeEmbed(t *testing.T) {
	m, fs := newTestManager(t)
	fs.exitAfterStart = true
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Ghost", Visible: true})

	_, err := m.LaunchAndEmbed("C:/apps/ghost.exe", "tab-1")
	if !errors.Is(err, ErrEmbedSelfClosed) {
		t.Fatalf("expected ErrEmbedSelfClosed, got %v", err)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected cleanup termination exactly once, got %d", n)
	}
	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry, got %d tabs", n)
	}
}

func TestManager_LaunchAndEmbed_RefusedCleansUp(t *testing.T) {
	m, fs := newTestManager(t)
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Stubborn", Visible: true})
	w.refuseParent = true

	_, err := m.LaunchAndEmbed("C:/apps/stubborn.exe", "tab-1")
	if !errors.Is(err, ErrEmbedRefused) {
		t.Fatalf("expected ErrEmbedRefused, got %v", err)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected cleanup termination exactly once, got %d", n)
	}
	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry, got %d tabs", n)
	}
}

func TestManager_LaunchAndEmbed_VanishCleansUp(t *testing.T) {
	m, fs := newTestManager(t)
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Evasive", Visible: true})
	w.dieOnPosition = true

	_, err := m.LaunchAndEmbed("C:/apps/evasive.exe", "tab-1")
	if !errors.Is(err, ErrEmbedVanished) {
		t.Fatalf("expected ErrEmbedVanished, got %v", err)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected cleanup termination exactly once, got %d", n)
	}
	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry, got %d tabs", n)
	}
}

func TestManager_DisplayNameFallsBackToImagePath(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Visible: true, Style: winapi.WS_CAPTION})
	fs.images[1001] = "C:/Program Files/App/app.exe"

	tab, err := m.LaunchAndEmbed("C:/Program Files/App/app.exe", "tab-1")
	if err != nil {
		t.Fatalf("expected successful launch, got %v", err)
	}
	if tab.DisplayName != "app.exe" {
		t.Errorf("expected display name app.exe, got %q", tab.DisplayName)
	}
}

func TestManager_HideAndShow(t *testing.T) {
	m, fs := newTestManager(t)
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}

	if err := m.HideTab("tab-1"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if w.visible {
		t.Error("expected window hidden")
	}
	if tabs := m.EmbeddedWindows(); len(tabs) != 1 || tabs[0].Visible {
		t.Error("expected tab registered but marked hidden")
	}

	before := len(fs.positionsFor(0x10))
	if err := m.ShowTab("tab-1"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !w.visible {
		t.Error("expected window visible again")
	}
	calls := fs.positionsFor(0x10)
	if len(calls) <= before {
		t.Fatal("expected show to re-apply geometry")
	}
	last := calls[len(calls)-1]
	want := winapi.Rect{X: 300, Y: 86, Width: 900, Height: 714}
	if last.rect != want || !last.show {
		t.Errorf("expected stored geometry %+v shown, got %+v show=%v", want, last.rect, last.show)
	}
}

func TestManager_ShowTab_Unknown(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.ShowTab("nope"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("expected ErrTabNotFound, got %v", err)
	}
}

func TestManager_HideTab_Unknown(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.HideTab("nope"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("expected ErrTabNotFound, got %v", err)
	}
}

func TestManager_CloseTab(t *testing.T) {
	m, fs := newTestManager(t)
	w := fs.addWindow(winapi.WindowInfo{
		Handle:  0x10,
		PID:     1001,
		Title:   "Notepad",
		Visible: true,
		Style:   winapi.WS_CAPTION | winapi.WS_THICKFRAME,
	})

	var events []Event
	m.SetNotify(func(e Event) { events = append(events, e) })

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := m.CloseTab("tab-1"); err != nil {
		t.Fatalf("close: %v", err)
	}

	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry, got %d tabs", n)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected process terminated exactly once, got %d", n)
	}
	if w.parent != 0 {
		t.Errorf("expected window unparented before termination, got %s", w.parent)
	}
	if w.info.Style&winapi.WS_CHILD != 0 {
		t.Error("expected WS_CHILD cleared on close")
	}
	if w.info.Style&winapi.WS_THICKFRAME == 0 {
		t.Error("expected resizable frame restored on close")
	}
	if len(events) != 0 {
		t.Errorf("expected no notification for an explicit close, got %d", len(events))
	}
}

func TestManager_CloseTab_UnknownIsRepeatable(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < 3; i++ {
		if err := m.CloseTab("nope"); !errors.Is(err, ErrTabNotFound) {
			t.Fatalf("call %d: expected ErrTabNotFound, got %v", i+1, err)
		}
	}
}

func TestManager_CloseTab_TwiceReportsNotFound(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := m.CloseTab("tab-1"); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := m.CloseTab("tab-1"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("expected ErrTabNotFound on second close, got %v", err)
	}
	if n := fs.terminations(1001); n != 1 {
		t.Errorf("expected exactly one termination, got %d", n)
	}
}

func TestManager_ResizeTab(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := m.ResizeTab("tab-1", 1600, 1000); err != nil {
		t.Fatalf("resize: %v", err)
	}

	want := winapi.Rect{X: 300, Y: 86, Width: 1300, Height: 914}
	tabs := m.EmbeddedWindows()
	if tabs[0].Geometry != want {
		t.Errorf("expected geometry %+v, got %+v", want, tabs[0].Geometry)
	}
	if _, w, h := m.Host(); w != 1600 || h != 1000 {
		t.Errorf("expected host bounds 1600x1000, got %dx%d", w, h)
	}
}

func TestManager_MoveTab_KeepsSize(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := m.MoveTab("tab-1", 10, 20); err != nil {
		t.Fatalf("move: %v", err)
	}

	want := winapi.Rect{X: 10, Y: 20, Width: 900, Height: 714}
	tabs := m.EmbeddedWindows()
	if tabs[0].Geometry != want {
		t.Errorf("expected geometry %+v, got %+v", want, tabs[0].Geometry)
	}
}

func TestManager_MoveTab_HiddenStaysHidden(t *testing.T) {
	m, fs := newTestManager(t)
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "Notepad", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/Windows/notepad.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := m.HideTab("tab-1"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := m.MoveTab("tab-1", 10, 20); err != nil {
		t.Fatalf("move: %v", err)
	}

	if w.visible {
		t.Error("expected hidden tab to stay hidden through a move")
	}
	calls := fs.positionsFor(0x10)
	if last := calls[len(calls)-1]; last.show {
		t.Error("expected repositioning without showing")
	}
}

func TestManager_ResizeAll(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "One", Visible: true})
	fs.addWindow(winapi.WindowInfo{Handle: 0x20, PID: 1002, Title: "Two", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/apps/one.exe", "tab-1"); err != nil {
		t.Fatalf("launch one: %v", err)
	}
	if _, err := m.LaunchAndEmbed("C:/apps/two.exe", "tab-2"); err != nil {
		t.Fatalf("launch two: %v", err)
	}
	if err := m.HideTab("tab-2"); err != nil {
		t.Fatalf("hide: %v", err)
	}

	if n := m.ResizeAll(1600, 1000); n != 1 {
		t.Errorf("expected 1 tab repositioned, got %d", n)
	}

	want := winapi.Rect{X: 300, Y: 86, Width: 1300, Height: 914}
	stored := winapi.Rect{X: 300, Y: 86, Width: 900, Height: 714}
	for _, tab := range m.EmbeddedWindows() {
		switch tab.ID {
		case "tab-1":
			if tab.Geometry != want {
				t.Errorf("visible tab: expected %+v, got %+v", want, tab.Geometry)
			}
		case "tab-2":
			if tab.Geometry != stored {
				t.Errorf("hidden tab: expected stored %+v, got %+v", stored, tab.Geometry)
			}
		}
	}
}

func TestManager_ResizeAll_IdenticalRects(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "One", Visible: true})
	fs.addWindow(winapi.WindowInfo{Handle: 0x20, PID: 1002, Title: "Two", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/apps/one.exe", "tab-1"); err != nil {
		t.Fatalf("launch one: %v", err)
	}
	if _, err := m.LaunchAndEmbed("C:/apps/two.exe", "tab-2"); err != nil {
		t.Fatalf("launch two: %v", err)
	}

	if n := m.ResizeAll(1600, 1000); n != 2 {
		t.Errorf("expected 2 tabs repositioned, got %d", n)
	}
	tabs := m.EmbeddedWindows()
	if tabs[0].Geometry != tabs[1].Geometry {
		t.Errorf("expected identical rects, got %+v and %+v", tabs[0].Geometry, tabs[1].Geometry)
	}
}

func TestManager_SetInsets_ReappliesGeometry(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "One", Visible: true})

	if _, err := m.LaunchAndEmbed("C:/apps/one.exe", "tab-1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if n := m.SetInsets(Insets{Sidebar: 200, Header: 40, TabBar: 30}); n != 1 {
		t.Errorf("expected 1 tab repositioned, got %d", n)
	}

	want := winapi.Rect{X: 200, Y: 70, Width: 1000, Height: 730}
	if tabs := m.EmbeddedWindows(); tabs[0].Geometry != want {
		t.Errorf("expected geometry %+v, got %+v", want, tabs[0].Geometry)
	}
}

func TestManager_AttachHost_Once(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.AttachHost(0x2, 800, 600); !errors.Is(err, ErrHostAttached) {
		t.Errorf("expected ErrHostAttached, got %v", err)
	}
}

func TestManager_AttachHost_ZeroHandle(t *testing.T) {
	quietLogger(t)
	m := NewManager(newFakeWindowSystem(), testConfig())
	t.Cleanup(m.Shutdown)
	if err := m.AttachHost(0, 800, 600); err == nil {
		t.Error("expected error for zero host handle")
	}
}

func TestManager_Shutdown(t *testing.T) {
	m, fs := newTestManager(t)
	fs.addWindow(winapi.WindowInfo{Handle: 0x10, PID: 1001, Title: "One", Visible: true})
	fs.addWindow(winapi.WindowInfo{Handle: 0x20, PID: 1002, Title: "Two", Visible: true})

	var events []Event
	m.SetNotify(func(e Event) { events = append(events, e) })

	if _, err := m.LaunchAndEmbed("C:/apps/one.exe", "tab-1"); err != nil {
		t.Fatalf("launch one: %v", err)
	}
	if _, err := m.LaunchAndEmbed("C:/apps/two.exe", "tab-2"); err != nil {
		t.Fatalf("launch two: %v", err)
	}

	m.Shutdown()

	if n := len(m.EmbeddedWindows()); n != 0 {
		t.Errorf("expected empty registry after shutdown, got %d tabs", n)
	}
	for _, pid := range []int{1001, 1002} {
		if n := fs.terminations(pid); n != 1 {
			t.Errorf("pid %d: expected exactly one termination, got %d", pid, n)
		}
	}
	if len(events) != 0 {
		t.Errorf("expected no notifications on shutdown, got %d", len(events))
	}

	// A second shutdown must not terminate anything again.
	m.Shutdown()
	for _, pid := range []int{1001, 1002} {
		if n := fs.terminations(pid); n != 1 {
			t.Errorf("pid %d after second shutdown: expected 1 termination, got %d", pid, n)
		}
	}

	if _, err := m.LaunchAndEmbed("C:/apps/three.exe", "tab-3"); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
