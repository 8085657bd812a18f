package dock

import "time"

// ReasonWindowClosed is the reason carried by notifications for tabs whose
// window died outside the close path. Window death alone cannot distinguish
// a crash from the user closing the application directly, so both report
// the same reason.
const ReasonWindowClosed = "window_closed"

// Event is the out-of-band tab-closed notification. Explicit closes emit no
// event; the caller initiated those and already knows.
type Event struct {
	ID          string    `json:"id"`
	TabID       string    `json:"tab_id"`
	Reason      string    `json:"reason"`
	PID         int       `json:"pid,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Time        time.Time `json:"time"`
}
