package dock

import "errors"

// Launch pipeline failures. Callers match with errors.Is; every failure of
// LaunchAndEmbed already had the spawned process terminated before it was
// returned, so no cleanup is owed by the caller.
var (
	// ErrLaunchFailed means the process could not be created at all
	// (missing binary, permission denied, malformed path).
	ErrLaunchFailed = errors.New("application launch failed")

	// ErrLocateTimeout means the process never presented a qualifying
	// window before the locate deadline.
	ErrLocateTimeout = errors.New("no embeddable window found before deadline")

	// ErrEmbedRefused means the application or an OS policy explicitly
	// rejected the reparenting call.
	ErrEmbedRefused = errors.New("application refused embedding")

	// ErrEmbedSelfClosed means the window vanished during the embed
	// protocol; the application detected the reparent and exited.
	ErrEmbedSelfClosed = errors.New("window closed during embedding")

	// ErrEmbedVanished means the window survived the embed calls but
	// disappeared during the final verification burst.
	ErrEmbedVanished = errors.New("window disappeared after embedding")
)

// Registry and lifecycle failures.
var (
	ErrTabNotFound  = errors.New("tab not found")
	ErrTabActive    = errors.New("tab already launching or embedded")
	ErrNoHost       = errors.New("no host window attached")
	ErrHostAttached = errors.New("host window already attached")
	ErrShuttingDown = errors.New("shutting down")
)
