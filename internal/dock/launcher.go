package dock

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/windock/windock/internal/winapi"
)

// launchProcess starts the executable without waiting for it to present a
// window. Every creation failure maps to ErrLaunchFailed so callers can
// distinguish "never started" from the later locate/embed failures.
func launchProcess(ws WindowSystem, path string) (*winapi.Process, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty executable path", ErrLaunchFailed)
	}
	proc, err := ws.StartProcess(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	slog.Debug("Application process started", "path", path, "pid", proc.Pid)
	return proc, nil
}
