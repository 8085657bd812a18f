package dock

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/windock/windock/internal/winapi"
)

// Config carries the engine's layout and timing knobs. The zero value of a
// duration falls back to the default; tests pass small explicit values.
type Config struct {
	Insets         Insets
	LocateDeadline time.Duration
	LocateInterval time.Duration
	StabilizeDelay time.Duration
	VerifyChecks   int
	VerifyInterval time.Duration
	SweepInterval  time.Duration
	// ClassBlacklist extends the built-in shell window class blacklist.
	ClassBlacklist []string
}

func DefaultConfig() Config {
	return Config{
		Insets:         Insets{Sidebar: 300, Header: 50, TabBar: 36},
		LocateDeadline: 30 * time.Second,
		LocateInterval: 500 * time.Millisecond,
		StabilizeDelay: time.Second,
		VerifyChecks:   3,
		VerifyInterval: 100 * time.Millisecond,
		SweepInterval:  5 * time.Second,
	}
}

// Manager owns the tab registry and orchestrates launch → locate → embed on
// the way in and unparent → terminate → deregister on the way out. All
// shared state lives behind one mutex; the slow launch pipeline runs
// outside it so concurrent launches for different tabs never serialize.
type Manager struct {
	ws  WindowSystem
	cfg Config

	loc *locator
	emb *embedder

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	host      winapi.HWND
	hostW     int
	hostH     int
	tabs      map[string]*Tab
	launching map[string]TabStatus
	closed    bool
	notify    func(Event)
}

func NewManager(ws WindowSystem, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.LocateDeadline <= 0 {
		cfg.LocateDeadline = def.LocateDeadline
	}
	if cfg.LocateInterval <= 0 {
		cfg.LocateInterval = def.LocateInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ws:        ws,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		tabs:      make(map[string]*Tab),
		launching: make(map[string]TabStatus),
	}
	m.loc = newLocator(ws, cfg)
	m.emb = &embedder{ws: ws, verifyChecks: cfg.VerifyChecks, verifyInterval: cfg.VerifyInterval}
	return m
}

// SetNotify installs the tab-closed notification sink. Install before the
// watchdog starts; events fire from its goroutine.
func (m *Manager) SetNotify(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// AttachHost registers the host window all tabs embed into. The host is set
// once for the manager's lifetime.
func (m *Manager) AttachHost(h winapi.HWND, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrShuttingDown
	}
	if m.host != 0 {
		return ErrHostAttached
	}
	if h == 0 {
		return fmt.Errorf("attach host: zero window handle")
	}
	m.host = h
	m.hostW, m.hostH = width, height
	slog.Info("Host window attached", "hwnd", h, "width", width, "height", height)
	return nil
}

// Host returns the attached host handle and its last reported client size.
func (m *Manager) Host() (winapi.HWND, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host, m.hostW, m.hostH
}

// LaunchAndEmbed starts the executable, waits for its main window, embeds
// it into the host, and registers the tab. On any stage failure the spawned
// process is terminated best-effort and no registry entry remains. A tab id
// that is already embedded or mid-launch is rejected outright.
func (m *Manager) LaunchAndEmbed(path, tabID string) (Tab, error) {
	if tabID == "" {
		return Tab{}, fmt.Errorf("launch: empty tab id")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Tab{}, ErrShuttingDown
	}
	if m.host == 0 {
		m.mu.Unlock()
		return Tab{}, ErrNoHost
	}
	if _, ok := m.tabs[tabID]; ok {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("tab %q: %w", tabID, ErrTabActive)
	}
	if _, ok := m.launching[tabID]; ok {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("tab %q: %w", tabID, ErrTabActive)
	}
	m.launching[tabID] = StatusLaunching
	host := m.host
	rect := ComputeBounds(m.hostW, m.hostH, m.cfg.Insets)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.launching, tabID)
		m.mu.Unlock()
	}()

	slog.Info("Launching application", "tab", tabID, "path", path)
	proc, err := launchProcess(m.ws, path)
	if err != nil {
		return Tab{}, err
	}

	m.setStage(tabID, StatusLocating)
	hwnd, err := m.loc.Locate(m.ctx, proc.Pid)
	if err != nil {
		m.abortLaunch(proc, tabID, err)
		return Tab{}, err
	}

	// Let the application settle before touching its window; freshly
	// created windows still churn styles and children.
	if !sleepCtx(m.ctx, m.cfg.StabilizeDelay) {
		m.abortLaunch(proc, tabID, ErrShuttingDown)
		return Tab{}, ErrShuttingDown
	}
	if !m.ws.ProcessAlive(proc.Pid) {
		err := fmt.Errorf("%w: process %d exited before embedding", ErrEmbedSelfClosed, proc.Pid)
		m.abortLaunch(proc, tabID, err)
		return Tab{}, err
	}

	m.setStage(tabID, StatusEmbedding)
	if err := m.emb.Embed(m.ctx, hwnd, host, rect); err != nil {
		m.abortLaunch(proc, tabID, err)
		return Tab{}, err
	}

	tab := &Tab{
		ID:          tabID,
		Handle:      hwnd,
		PID:         proc.Pid,
		Geometry:    rect,
		Visible:     true,
		DisplayName: m.displayName(hwnd, proc.Pid, path),
		Status:      StatusEmbedded,
		LaunchedAt:  time.Now(),
		proc:        proc,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.abortLaunch(proc, tabID, ErrShuttingDown)
		return Tab{}, ErrShuttingDown
	}
	m.tabs[tabID] = tab
	out := *tab
	m.mu.Unlock()

	slog.Info("Application embedded",
		"tab", tabID, "pid", tab.PID, "hwnd", tab.Handle, "name", tab.DisplayName)
	return out, nil
}

// ShowTab makes the tab visible again and re-applies its last stored
// geometry; hidden windows drift when the host moves or the slot resized
// while they were out.
func (m *Manager) ShowTab(tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("show tab %q: %w", tabID, ErrTabNotFound)
	}
	if err := m.ws.ShowWindow(t.Handle, true); err != nil {
		return fmt.Errorf("show tab %q: %w", tabID, err)
	}
	if err := m.ws.PositionWindow(t.Handle, t.Geometry, true); err != nil {
		return fmt.Errorf("show tab %q: %w", tabID, err)
	}
	m.ws.RaiseWindow(t.Handle)
	m.ws.RedrawWindow(t.Handle)
	t.Visible = true
	return nil
}

// HideTab hides the window; the tab stays registered and monitored.
func (m *Manager) HideTab(tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("hide tab %q: %w", tabID, ErrTabNotFound)
	}
	if err := m.ws.ShowWindow(t.Handle, false); err != nil {
		return fmt.Errorf("hide tab %q: %w", tabID, err)
	}
	t.Visible = false
	return nil
}

// CloseTab unparents the window, terminates its process and removes the
// tab. The teardown steps are independent and best-effort; the registry
// entry goes away regardless.
func (m *Manager) CloseTab(tabID string) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("close tab %q: %w", tabID, ErrTabNotFound)
	}
	t.Status = StatusClosing
	delete(m.tabs, tabID)
	m.mu.Unlock()

	m.unembed(t)
	m.terminate(t)
	t.Status = StatusClosed
	slog.Info("Tab closed", "tab", tabID, "pid", t.PID)
	return nil
}

// ResizeTab recomputes the tab's geometry for new host bounds and applies it.
func (m *Manager) ResizeTab(tabID string, hostWidth, hostHeight int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("resize tab %q: %w", tabID, ErrTabNotFound)
	}
	m.hostW, m.hostH = hostWidth, hostHeight
	rect := ComputeBounds(hostWidth, hostHeight, m.cfg.Insets)
	if err := m.ws.PositionWindow(t.Handle, rect, t.Visible); err != nil {
		return fmt.Errorf("resize tab %q: %w", tabID, err)
	}
	t.Geometry = rect
	return nil
}

// MoveTab repositions the tab keeping its current size.
func (m *Manager) MoveTab(tabID string, x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("move tab %q: %w", tabID, ErrTabNotFound)
	}
	rect := t.Geometry
	rect.X, rect.Y = x, y
	if err := m.ws.PositionWindow(t.Handle, rect, t.Visible); err != nil {
		return fmt.Errorf("move tab %q: %w", tabID, err)
	}
	t.Geometry = rect
	return nil
}

// ResizeAll recomputes the embed rectangle for new host bounds and applies
// it to every visible tab; hidden tabs keep their stored geometry until
// shown. Returns the number of tabs repositioned.
func (m *Manager) ResizeAll(hostWidth, hostHeight int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostW, m.hostH = hostWidth, hostHeight
	rect := ComputeBounds(hostWidth, hostHeight, m.cfg.Insets)
	applied := 0
	for _, t := range m.tabs {
		if !t.Visible {
			continue
		}
		if err := m.ws.PositionWindow(t.Handle, rect, true); err != nil {
			slog.Warn("Repositioning failed", "tab", t.ID, "error", err)
			continue
		}
		t.Geometry = rect
		applied++
	}
	return applied
}

// SetInsets swaps the chrome insets and re-applies geometry to visible tabs
// using the last known host bounds. Used by config hot-reload.
func (m *Manager) SetInsets(in Insets) int {
	m.mu.Lock()
	m.cfg.Insets = in
	w, h := m.hostW, m.hostH
	m.mu.Unlock()
	if w == 0 && h == 0 {
		return 0
	}
	return m.ResizeAll(w, h)
}

// Insets returns the active chrome insets.
func (m *Manager) Insets() Insets {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Insets
}

// Shutdown cancels in-flight launches and force-closes every registered tab
// rather than letting them time out on their own. Safe to call twice.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	tabs := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabs = append(tabs, t)
	}
	m.tabs = make(map[string]*Tab)
	m.mu.Unlock()

	m.cancel()
	for _, t := range tabs {
		t.Status = StatusClosing
		m.unembed(t)
		m.terminate(t)
		t.Status = StatusClosed
	}
	if len(tabs) > 0 {
		slog.Info("Closed all embedded tabs", "count", len(tabs))
	}
}

// reapDeadTab removes a tab whose window died out-of-band. Returns false
// when a concurrent close already removed it or the window is alive again
// by the time the lock is held, so the notification can never double-fire.
func (m *Manager) reapDeadTab(tabID string, h winapi.HWND) bool {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok || t.Handle != h || m.ws.IsWindow(h) {
		m.mu.Unlock()
		return false
	}
	t.Status = StatusCrashed
	delete(m.tabs, tabID)
	m.mu.Unlock()

	// The window is gone; there is nothing to unparent. The process may
	// still be alive without it.
	m.terminate(t)
	slog.Warn("Embedded window disappeared",
		"tab", tabID, "pid", t.PID, "name", t.DisplayName)
	m.emitClosed(t, ReasonWindowClosed)
	return true
}

// unembed returns the window to the desktop with standard decorations.
// Failures are logged only; the window may already be half-dead.
func (m *Manager) unembed(t *Tab) {
	if !m.ws.IsWindow(t.Handle) {
		return
	}
	style, exStyle := m.ws.WindowStyles(t.Handle)
	if err := m.ws.SetWindowStyles(t.Handle, restoredStyles(style), exStyle); err != nil {
		slog.Debug("Style restore failed", "tab", t.ID, "error", err)
	}
	if err := m.ws.SetParent(t.Handle, 0); err != nil {
		slog.Debug("Unparenting failed", "tab", t.ID, "error", err)
	}
	m.ws.RefreshFrame(t.Handle)
}

// terminate kills the tab's process and releases the handle. Best-effort.
func (m *Manager) terminate(t *Tab) {
	if err := m.ws.TerminateProcess(t.PID); err != nil {
		slog.Debug("Process termination failed", "tab", t.ID, "pid", t.PID, "error", err)
	}
	if err := t.proc.Release(); err != nil {
		slog.Debug("Process handle release failed", "tab", t.ID, "pid", t.PID, "error", err)
	}
}

// abortLaunch tears down a partially launched process. One termination
// attempt, logged on failure, never returned: the typed stage error is what
// the caller gets.
func (m *Manager) abortLaunch(proc *winapi.Process, tabID string, cause error) {
	slog.Warn("Launch aborted, terminating spawned process",
		"tab", tabID, "pid", proc.Pid, "error", cause)
	if err := m.ws.TerminateProcess(proc.Pid); err != nil {
		slog.Debug("Cleanup termination failed", "pid", proc.Pid, "error", err)
	}
	if err := proc.Release(); err != nil {
		slog.Debug("Process handle release failed", "pid", proc.Pid, "error", err)
	}
}

func (m *Manager) setStage(tabID string, s TabStatus) {
	m.mu.Lock()
	m.launching[tabID] = s
	m.mu.Unlock()
}

// emitClosed delivers the tab-closed notification outside the registry lock.
func (m *Manager) emitClosed(t *Tab, reason string) {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	if fn == nil {
		return
	}
	fn(Event{
		ID:          uuid.NewString(),
		TabID:       t.ID,
		Reason:      reason,
		PID:         t.PID,
		DisplayName: t.DisplayName,
		Time:        time.Now(),
	})
}

// displayName prefers the live window title, then the executable image
// name, then the launch path.
func (m *Manager) displayName(h winapi.HWND, pid int, path string) string {
	if title := strings.TrimSpace(m.ws.WindowTitle(h)); title != "" {
		return title
	}
	if exe, err := m.ws.ProcessImagePath(pid); err == nil && exe != "" {
		return filepath.Base(exe)
	}
	return filepath.Base(path)
}

// sleepCtx waits d unless ctx ends first; reports whether the full wait
// completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
