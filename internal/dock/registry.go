package dock

import (
	"sort"
	"time"

	"github.com/windock/windock/internal/winapi"
)

// TabStatus tracks a tab through its lifecycle. Launch-stage statuses only
// ever appear in the in-flight view; the registry itself holds embedded
// tabs, transiently marked closing or crashed on their way out.
type TabStatus string

const (
	StatusLaunching TabStatus = "launching"
	StatusLocating  TabStatus = "locating_window"
	StatusEmbedding TabStatus = "embedding"
	StatusEmbedded  TabStatus = "embedded"
	StatusClosing   TabStatus = "closing"
	StatusClosed    TabStatus = "closed"
	StatusCrashed   TabStatus = "crashed"
)

// Tab is the registry entry for one embedded window. The registry is the
// sole owner of the window and process handles: exactly one path (close or
// crash cleanup) releases them.
type Tab struct {
	ID          string      `json:"tab_id"`
	Handle      winapi.HWND `json:"hwnd"`
	PID         int         `json:"pid"`
	Geometry    winapi.Rect `json:"geometry"`
	Visible     bool        `json:"visible"`
	DisplayName string      `json:"display_name"`
	Status      TabStatus   `json:"status"`
	LaunchedAt  time.Time   `json:"launched_at"`

	proc *winapi.Process
}

// EmbeddedWindows returns a point-in-time copy of the registry, sorted by
// tab id for stable output.
func (m *Manager) EmbeddedWindows() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Launching returns the stage of every launch currently in flight.
func (m *Manager) Launching() map[string]TabStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]TabStatus, len(m.launching))
	for id, s := range m.launching {
		out[id] = s
	}
	return out
}
