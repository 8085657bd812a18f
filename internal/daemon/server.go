package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/windock/windock/internal/catalog"
	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/db"
	"github.com/windock/windock/internal/dock"
	"github.com/windock/windock/internal/winapi"
)

// Daemon owns the embedding manager and serves the control socket that the
// CLI (and any host shell) talks to. One daemon runs per user session; the
// socket lives in the config directory next to the PID file.
type Daemon struct {
	manager        *dock.Manager
	watchdog       *dock.Watchdog
	apps           *catalog.Catalog
	database       *db.DB
	listener       net.Listener
	logBroadcast   *LineBroadcaster
	eventBroadcast *LineBroadcaster
	startedAt      time.Time
	shutdownOnce   sync.Once
	ctx            context.Context
	cancelFunc     context.CancelFunc
}

// New builds a daemon from the loaded configuration. core.Config must be
// populated before calling.
func New() *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	dockCfg := core.Config.DockConfig()
	d := &Daemon{
		manager: dock.NewManager(winapi.New(), dockCfg),
		apps: catalog.New(catalog.Config{
			Roots:    core.Config.Catalog.Roots,
			MaxDepth: core.Config.Catalog.MaxDepth,
		}),
		logBroadcast:   NewLineBroadcaster(logHistorySize),
		eventBroadcast: NewLineBroadcaster(eventHistorySize),
		startedAt:      time.Now(),
		ctx:            ctx,
		cancelFunc:     cancel,
	}
	d.watchdog = dock.NewWatchdog(d.manager, core.Config.Watchdog.Interval)
	d.manager.SetNotify(d.publishTabEvent)
	return d
}

// Run starts the daemon and blocks serving the control socket until the
// socket is closed or a shutdown signal arrives.
func (d *Daemon) Run() {
	d.setupLogging()

	dbPath := core.GetDatabasePath()
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("Failed to open database, event history disabled", "error", err, "path", dbPath)
	} else {
		d.database = database
		slog.Info("Database opened", "path", dbPath)

		version := core.FormatVersion(core.Version())
		details := fmt.Sprintf("daemon started - version: %s, PID: %d", version, os.Getpid())
		if err := d.database.LogDaemonEvent("start", details); err != nil {
			slog.Error("Failed to log daemon start event", "error", err)
		}
	}

	socketPath := core.GetSocketPath()
	pidFilePath := core.GetPIDFilePath()

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		// The socket file may be left over from a previous daemon that
		// did not exit cleanly. If nothing answers on it, remove the
		// stale file and claim the address.
		if _, statErr := os.Stat(socketPath); statErr == nil {
			conn, dialErr := net.Dial("unix", socketPath)
			if dialErr == nil {
				conn.Close()
				slog.Error("Another daemon is already running", "socket", socketPath)
				os.Exit(1)
			}
			slog.Info("Removing stale socket file", "socket", socketPath)
			if rmErr := os.Remove(socketPath); rmErr != nil {
				slog.Error("Failed to remove stale socket file", "error", rmErr)
				os.Exit(1)
			}
			listener, err = net.Listen("unix", socketPath)
		}
		if err != nil {
			slog.Error("Failed to create socket", "error", err)
			os.Exit(1)
		}
	}

	if err := os.WriteFile(pidFilePath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		slog.Error("Failed to write PID file", "error", err, "path", pidFilePath)
	}
	defer os.Remove(pidFilePath)
	defer os.Remove(socketPath)

	d.listener = listener
	slog.Info(fmt.Sprintf("Daemon listening on %s", socketPath))

	go d.watchdog.Run(d.ctx)

	d.watchConfig()
	d.watchCatalog()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-shutdownChan
		slog.Info("Shutdown signal received. Closing all embedded windows.")
		d.shutdown()
		if d.listener != nil {
			d.listener.Close()
		}
		os.Exit(0)
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if !strings.Contains(err.Error(), "use of closed network connection") {
				slog.Info(fmt.Sprintf("Error accepting connection: %v", err))
			}
			break
		}
		go d.handleConnection(conn)
	}
}

// handleConnection reads one request line, dispatches it, and writes the
// JSON response. Streaming verbs take over the connection and never return
// through the envelope path.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	line := scanner.Text()
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	command, args := parts[0], parts[1:]

	// VERSION is polled by every CLI invocation; logging it is noise.
	if command != "VERSION" {
		if len(args) > 0 {
			slog.Info(fmt.Sprintf("Executing command: %s %v", command, args))
		} else {
			slog.Info(fmt.Sprintf("Executing command: %s", command))
		}
	}

	var response Response
	switch command {
	case "HOST":
		response = d.attachHost(args)
	case "HOST_RESIZE":
		response = d.resizeHost(command, args)
	case "LAUNCH":
		response = d.launchTab(line)
	case "SHOW":
		response = d.showTab(args)
	case "HIDE":
		response = d.hideTab(args)
	case "CLOSE":
		response = d.closeTab(args)
	case "RESIZE":
		response = d.resizeTab(args)
	case "MOVE":
		response = d.moveTab(args)
	case "RESIZE_ALL":
		response = d.resizeHost(command, args)
	case "LIST":
		response = d.listTabs()
	case "APPS":
		response = d.listApps(args)
	case "STATUS":
		response = d.getStatus()
	case "VERSION":
		response = d.getVersion()
	case "LOGS":
		showHistory, historyLines := parseStreamArgs(args)
		d.handleLogs(conn, showHistory, historyLines)
		return
	case "ATTACH":
		showHistory, historyLines := parseStreamArgs(args)
		d.handleAttach(conn, showHistory, historyLines)
		return
	case "EVENTS":
		d.handleEvents(conn)
		return
	case "RELOAD":
		response = d.reloadNow()
	case "STOP":
		response = d.stopDaemon()
		conn.Write([]byte(response.ToJSON()))
		slog.Info("Stop command received. Shutting down daemon.")
		d.shutdown()
		if d.listener != nil {
			d.listener.Close()
		}
		os.Exit(0)
	default:
		response.AddMessage("Unknown command.", "ERROR")
	}

	conn.Write([]byte(response.ToJSON()))
}

// parseStreamArgs interprets the optional arguments of LOGS and ATTACH:
// a history line count and the "no_history" marker, in either order.
func parseStreamArgs(args []string) (showHistory bool, historyLines int) {
	showHistory = true
	historyLines = 20
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			historyLines = n
		}
		if args[0] == "no_history" || (len(args) >= 2 && args[1] == "no_history") {
			showHistory = false
		}
	}
	return showHistory, historyLines
}

func (d *Daemon) attachHost(args []string) Response {
	var response Response
	if len(args) < 3 {
		response.AddMessage("Usage: HOST <hwnd> <width> <height>", "ERROR")
		return response
	}

	raw, err := strconv.ParseUint(args[0], 0, 64)
	width, werr := strconv.Atoi(args[1])
	height, herr := strconv.Atoi(args[2])
	if err != nil || werr != nil || herr != nil {
		response.AddMessage("Invalid host window arguments.", "ERROR")
		return response
	}

	handle := winapi.HWND(raw)
	if err := d.manager.AttachHost(handle, width, height); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}

	response.AddMessage(fmt.Sprintf("Host window %s attached (%dx%d)", handle, width, height), "INFO")
	response.AddData(map[string]interface{}{
		"hwnd":   handle.String(),
		"width":  width,
		"height": height,
		"bounds": dock.ComputeBounds(width, height, d.manager.Insets()),
	})
	return response
}

// resizeHost serves both HOST_RESIZE and RESIZE_ALL; the verbs are
// synonyms since resizing the host always relays out every tab.
func (d *Daemon) resizeHost(verb string, args []string) Response {
	var response Response
	if len(args) < 2 {
		response.AddMessage(fmt.Sprintf("Usage: %s <width> <height>", verb), "ERROR")
		return response
	}

	width, werr := strconv.Atoi(args[0])
	height, herr := strconv.Atoi(args[1])
	if werr != nil || herr != nil {
		response.AddMessage("Invalid host dimensions.", "ERROR")
		return response
	}

	count := d.manager.ResizeAll(width, height)
	response.AddMessage(fmt.Sprintf("Resized %d embedded window(s)", count), "INFO")
	response.AddData(map[string]interface{}{"resized": count})
	return response
}

// launchTab receives the raw request line because the application reference
// is everything after the tab id and may contain spaces.
func (d *Daemon) launchTab(line string) Response {
	var response Response

	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		response.AddMessage("Usage: LAUNCH <tab-id> <app>", "ERROR")
		return response
	}
	tabID := parts[1]
	ref := strings.TrimSpace(parts[2])

	// A catalog id or display name resolves to its executable. Anything
	// unknown is treated as a literal path and left to the launcher.
	path := ref
	if app, ok := d.apps.Find(ref); ok {
		path = app.Path
	}

	tab, err := d.manager.LaunchAndEmbed(path, tabID)
	if err != nil {
		if d.database != nil {
			details := fmt.Sprintf("%s: %v", path, err)
			if dbErr := d.database.LogTabEvent(tabID, "launch_failed", details); dbErr != nil {
				slog.Error("Failed to log launch failure", "error", dbErr, "tab", tabID)
			}
		}
		response.AddMessage(err.Error(), "ERROR")
		return response
	}

	if d.database != nil {
		details := fmt.Sprintf("%s embedded (PID %d)", tab.DisplayName, tab.PID)
		if dbErr := d.database.LogTabEvent(tabID, "embedded", details); dbErr != nil {
			slog.Error("Failed to log embed event", "error", dbErr, "tab", tabID)
		}
	}

	response.AddMessage(fmt.Sprintf("Embedded '%s' as tab '%s' (PID %d)", tab.DisplayName, tabID, tab.PID), "INFO")
	response.AddData(tab)
	return response
}

func (d *Daemon) showTab(args []string) Response {
	var response Response
	if len(args) < 1 {
		response.AddMessage("Usage: SHOW <tab-id>", "ERROR")
		return response
	}
	if err := d.manager.ShowTab(args[0]); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}
	response.AddMessage(fmt.Sprintf("Tab '%s' shown", args[0]), "INFO")
	return response
}

func (d *Daemon) hideTab(args []string) Response {
	var response Response
	if len(args) < 1 {
		response.AddMessage("Usage: HIDE <tab-id>", "ERROR")
		return response
	}
	if err := d.manager.HideTab(args[0]); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}
	response.AddMessage(fmt.Sprintf("Tab '%s' hidden", args[0]), "INFO")
	return response
}

func (d *Daemon) closeTab(args []string) Response {
	var response Response
	if len(args) < 1 {
		response.AddMessage("Usage: CLOSE <tab-id>", "ERROR")
		return response
	}
	if err := d.manager.CloseTab(args[0]); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}
	if d.database != nil {
		if dbErr := d.database.LogTabEvent(args[0], "closed", "closed by request"); dbErr != nil {
			slog.Error("Failed to log close event", "error", dbErr, "tab", args[0])
		}
	}
	response.AddMessage(fmt.Sprintf("Tab '%s' closed", args[0]), "INFO")
	return response
}

func (d *Daemon) resizeTab(args []string) Response {
	var response Response
	if len(args) < 3 {
		response.AddMessage("Usage: RESIZE <tab-id> <width> <height>", "ERROR")
		return response
	}
	width, werr := strconv.Atoi(args[1])
	height, herr := strconv.Atoi(args[2])
	if werr != nil || herr != nil {
		response.AddMessage("Invalid dimensions.", "ERROR")
		return response
	}
	if err := d.manager.ResizeTab(args[0], width, height); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}
	response.AddMessage(fmt.Sprintf("Tab '%s' resized for host %dx%d", args[0], width, height), "INFO")
	return response
}

func (d *Daemon) moveTab(args []string) Response {
	var response Response
	if len(args) < 3 {
		response.AddMessage("Usage: MOVE <tab-id> <x> <y>", "ERROR")
		return response
	}
	x, xerr := strconv.Atoi(args[1])
	y, yerr := strconv.Atoi(args[2])
	if xerr != nil || yerr != nil {
		response.AddMessage("Invalid coordinates.", "ERROR")
		return response
	}
	if err := d.manager.MoveTab(args[0], x, y); err != nil {
		response.AddMessage(err.Error(), "ERROR")
		return response
	}
	response.AddMessage(fmt.Sprintf("Tab '%s' moved to %d,%d", args[0], x, y), "INFO")
	return response
}

func (d *Daemon) listTabs() Response {
	var response Response
	tabs := d.manager.EmbeddedWindows()
	launching := d.manager.Launching()

	if len(tabs) == 0 && len(launching) == 0 {
		response.AddMessage("No embedded windows", "WARN")
	} else {
		response.AddMessage("OK", "INFO")
	}
	response.AddData(map[string]interface{}{
		"tabs":      tabs,
		"launching": launching,
	})
	return response
}

func (d *Daemon) listApps(args []string) Response {
	var response Response

	var apps []catalog.App
	if len(args) > 0 && strings.EqualFold(args[0], "REFRESH") {
		apps = d.apps.Refresh()
	} else {
		apps = d.apps.Apps()
	}

	response.AddMessage(fmt.Sprintf("%d application(s) discovered", len(apps)), "INFO")
	response.AddData(apps)
	return response
}

// DaemonStatus is the STATUS payload.
type DaemonStatus struct {
	Version       string      `json:"version"`
	Pid           int         `json:"pid"`
	Uptime        string      `json:"uptime"`
	MemoryRSS     uint64      `json:"memory_rss,omitempty"`
	SocketPath    string      `json:"socket_path"`
	HostAttached  bool        `json:"host_attached"`
	HostWidth     int         `json:"host_width,omitempty"`
	HostHeight    int         `json:"host_height,omitempty"`
	Insets        dock.Insets `json:"insets"`
	EmbeddedTabs  int         `json:"embedded_tabs"`
	LaunchingTabs int         `json:"launching_tabs"`
	CatalogApps   int         `json:"catalog_apps,omitempty"`
	CatalogScan   string      `json:"catalog_scanned_at,omitempty"`
	Tabs          []dock.Tab  `json:"tabs"`
}

func (d *Daemon) getStatus() Response {
	var response Response

	host, hostW, hostH := d.manager.Host()
	tabs := d.manager.EmbeddedWindows()
	launching := d.manager.Launching()

	status := DaemonStatus{
		Version:       core.FormatVersion(core.Version()),
		Pid:           os.Getpid(),
		Uptime:        time.Since(d.startedAt).Round(time.Second).String(),
		SocketPath:    core.GetSocketPath(),
		HostAttached:  host != 0,
		HostWidth:     hostW,
		HostHeight:    hostH,
		Insets:        d.manager.Insets(),
		EmbeddedTabs:  len(tabs),
		LaunchingTabs: len(launching),
		Tabs:          tabs,
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			status.MemoryRSS = mem.RSS
		}
	}

	// Asking the catalog for its size would trigger a full scan on a
	// fresh daemon, so only report it once a scan has happened.
	if scannedAt := d.apps.LastScan(); !scannedAt.IsZero() {
		status.CatalogApps = len(d.apps.Apps())
		status.CatalogScan = scannedAt.Format(time.RFC3339)
	}

	if status.HostAttached {
		response.AddMessage("OK", "INFO")
	} else {
		response.AddMessage("No host window attached", "WARN")
	}
	response.AddData(status)
	return response
}

func (d *Daemon) getVersion() Response {
	var response Response
	response.AddMessage("OK", "INFO")
	response.AddData(map[string]interface{}{
		"version": core.FormatVersion(core.Version()),
		"pid":     os.Getpid(),
	})
	return response
}

func (d *Daemon) reloadNow() Response {
	var response Response
	if err := d.reloadConfig(); err != nil {
		response.AddMessage(fmt.Sprintf("Failed to reload configuration: %v", err), "ERROR")
		return response
	}
	response.AddMessage("Configuration reloaded", "INFO")
	return response
}

func (d *Daemon) stopDaemon() Response {
	var response Response
	count := len(d.manager.EmbeddedWindows())
	if count > 0 {
		response.AddMessage(fmt.Sprintf("Stopping daemon and closing %d embedded window(s)...", count), "INFO")
	} else {
		response.AddMessage("Stopping daemon...", "INFO")
	}
	return response
}

// shutdown tears the daemon down exactly once: embedded windows are
// released back to the desktop, their processes are closed, and the event
// database is flushed.
func (d *Daemon) shutdown() {
	d.shutdownOnce.Do(func() {
		slog.Info("Executing shutdown sequence...")

		if d.cancelFunc != nil {
			d.cancelFunc()
		}

		tabCount := len(d.manager.EmbeddedWindows())
		d.manager.Shutdown()

		if d.database != nil {
			version := core.FormatVersion(core.Version())
			details := fmt.Sprintf("daemon stopped - version: %s, PID: %d, embedded tabs: %d",
				version, os.Getpid(), tabCount)
			if err := d.database.LogDaemonEvent("stop", details); err != nil {
				slog.Error("Failed to log daemon stop event", "error", err)
			}
			if err := d.database.Flush(); err != nil {
				slog.Error("Failed to flush database during shutdown", "error", err)
			}
			if err := d.database.Close(); err != nil {
				slog.Error("Failed to close database during shutdown", "error", err)
			} else {
				slog.Info("Database closed")
			}
		}

		// The STOP path exits the process directly, so the Run defers
		// never fire; clean the socket and PID file here.
		os.Remove(core.GetSocketPath())
		os.Remove(core.GetPIDFilePath())
	})
}

// reloadConfig re-reads the configuration file and swaps the global config.
// Layout insets apply to embedded tabs immediately; locate and embed timings
// only affect launches made after the reload. The watchdog interval needs a
// daemon restart.
func (d *Daemon) reloadConfig() error {
	oldConfig := core.Config

	configPath := core.GetConfigFilePath()
	newConfig, err := core.LoadConfig(configPath)
	if err != nil {
		slog.Error("Configuration file has errors, keeping previous configuration",
			"file", configPath, "error", err)
		return err
	}

	newConfig.ConfigPath = oldConfig.ConfigPath
	core.Config = newConfig

	resized := d.manager.SetInsets(newConfig.DockConfig().Insets)
	slog.Info("Configuration reloaded", "file", configPath, "resized_tabs", resized)
	return nil
}

// watchConfig reloads the configuration when the file changes on disk.
// Editors that replace the file (rename-over-write) remove the watch, so it
// is re-added with a short backoff before reloading.
func (d *Daemon) watchConfig() {
	configPath := core.GetConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		return
	}

	if err := watcher.Add(configPath); err != nil {
		slog.Error("Failed to watch config file", "error", err, "file", configPath)
		watcher.Close()
		return
	}

	slog.Debug("Watching configuration file", "file", configPath)

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		var debounceMu sync.Mutex

		for {
			select {
			case <-d.ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&(fsnotify.Rename|fsnotify.Remove|fsnotify.Create) != 0 {
					// The watch dies with the old inode; re-add it once
					// the new file exists.
					for attempt := 1; attempt <= 5; attempt++ {
						time.Sleep(10 * time.Millisecond << (attempt - 1))
						if err := watcher.Add(configPath); err == nil {
							break
						}
					}
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounceMu.Lock()
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						slog.Info("Configuration file changed, reloading", "file", configPath)
						if err := d.reloadConfig(); err != nil {
							slog.Error("Reload failed, previous configuration kept", "error", err)
						}
					})
					debounceMu.Unlock()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Config watcher error", "error", err)
			}
		}
	}()
}

// watchCatalog marks the application catalog stale when something under a
// program directory changes, so the next APPS query rescans. Installers
// touch many files in a burst; the debounce collapses that into one mark.
func (d *Daemon) watchCatalog() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create catalog watcher", "error", err)
		return
	}

	watched := 0
	for _, root := range d.apps.Roots() {
		if err := watcher.Add(root); err != nil {
			slog.Debug("Not watching catalog root", "root", root, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return
	}

	slog.Debug("Watching program directories", "roots", watched)

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		var debounceMu sync.Mutex

		for {
			select {
			case <-d.ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				debounceMu.Lock()
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(2*time.Second, func() {
					slog.Debug("Program directories changed, catalog marked stale")
					d.apps.MarkStale()
				})
				debounceMu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Catalog watcher error", "error", err)
			}
		}
	}()
}
