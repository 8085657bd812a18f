package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/windock/windock/internal/dock"
)

// publishTabEvent records a tab lifecycle event in the database and
// fans it out to EVENTS subscribers as one JSON line.
func (d *Daemon) publishTabEvent(e dock.Event) {
	line, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to encode tab event", "error", err, "tab", e.TabID)
		return
	}
	d.eventBroadcast.Broadcast(string(line) + "\n")

	if d.database != nil {
		details := fmt.Sprintf("%s gone (PID %d)", e.DisplayName, e.PID)
		if err := d.database.LogTabEvent(e.TabID, e.Reason, details); err != nil {
			slog.Error("Failed to log tab event", "error", err, "tab", e.TabID)
		}
	}
}
