package dock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/windock/windock/internal/winapi"
)

// defaultClassBlacklist holds shell-owned window classes that are never an
// application's main window, whatever process claims them.
var defaultClassBlacklist = []string{
	"Shell_TrayWnd",
	"Button",
	"Progman",
	"Shell_SecondaryTrayWnd",
}

// locator polls for the main window of a freshly spawned process. Window
// creation lags process creation by anything from milliseconds (notepad) to
// tens of seconds (apps with splash screens), so each launch gets its own
// bounded polling task.
type locator struct {
	ws        WindowSystem
	deadline  time.Duration
	interval  time.Duration
	blacklist map[string]struct{}
}

func newLocator(ws WindowSystem, cfg Config) *locator {
	bl := make(map[string]struct{}, len(defaultClassBlacklist)+len(cfg.ClassBlacklist))
	for _, c := range defaultClassBlacklist {
		bl[c] = struct{}{}
	}
	for _, c := range cfg.ClassBlacklist {
		bl[c] = struct{}{}
	}
	return &locator{
		ws:        ws,
		deadline:  cfg.LocateDeadline,
		interval:  cfg.LocateInterval,
		blacklist: bl,
	}
}

// Locate returns the first genuine main window the process presents, or the
// best fallback candidate once the deadline passes. The wall-clock deadline
// is hard: a process that never shows a qualifying window fails here
// deterministically instead of hanging the launch.
func (l *locator) Locate(ctx context.Context, pid int) (winapi.HWND, error) {
	deadline := time.Now().Add(l.deadline)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var fallback winapi.HWND
	for time.Now().Before(deadline) {
		genuine, candidate := l.scan(pid)
		if genuine != 0 {
			return genuine, nil
		}
		// Keep the earliest fallback that is still alive.
		if candidate != 0 && (fallback == 0 || !l.ws.IsWindow(fallback)) {
			fallback = candidate
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}

	if fallback != 0 && l.ws.IsWindow(fallback) {
		slog.Debug("No main window matched, using fallback candidate",
			"pid", pid, "hwnd", fallback)
		return fallback, nil
	}
	return 0, fmt.Errorf("%w: pid %d after %s", ErrLocateTimeout, pid, l.deadline)
}

// scan runs one enumeration pass. A window is genuine when it is visible,
// unowned, and carries either a title or caption/border styling; the first
// non-tool window of the process (visible or not) is remembered as a
// fallback for apps that never style a proper main window.
func (l *locator) scan(pid int) (genuine, fallback winapi.HWND) {
	infos, err := l.ws.ProcessWindows(pid)
	if err != nil {
		slog.Debug("Window enumeration failed", "pid", pid, "error", err)
		return 0, 0
	}
	for _, w := range infos {
		if _, skip := l.blacklist[w.Class]; skip {
			continue
		}
		if w.Visible && !w.HasParent {
			if w.Title != "" || w.Style&(winapi.WS_CAPTION|winapi.WS_BORDER) != 0 {
				return w.Handle, fallback
			}
		}
		if fallback == 0 && w.ExStyle&winapi.WS_EX_TOOLWINDOW == 0 {
			fallback = w.Handle
		}
	}
	return 0, fallback
}
