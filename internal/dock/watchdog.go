package dock

import (
	"context"
	"log/slog"
	"time"
)

// Watchdog sweeps the registry for windows that died outside the close
// path: the application crashed, or the user closed it directly. This is
// the only way such deaths are ever noticed, so the sweep also owns their
// cleanup and the upward notification.
type Watchdog struct {
	mgr      *Manager
	interval time.Duration
}

// NewWatchdog wires the sweep to a manager. A non-positive interval falls
// back to the default.
func NewWatchdog(mgr *Manager, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}
	return &Watchdog{mgr: mgr, interval: interval}
}

// Run sweeps on the fixed interval until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	slog.Debug("Window watchdog started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Window watchdog stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep checks every registered tab once and reaps the dead. The registry
// copy is taken under the lock, the aliveness checks run outside it, and
// reapDeadTab re-validates membership, so a concurrent close loses the race
// cleanly instead of double-firing.
func (w *Watchdog) Sweep() int {
	reaped := 0
	for _, t := range w.mgr.EmbeddedWindows() {
		if w.mgr.ws.IsWindow(t.Handle) {
			continue
		}
		if w.mgr.reapDeadTab(t.ID, t.Handle) {
			reaped++
		}
	}
	return reaped
}
