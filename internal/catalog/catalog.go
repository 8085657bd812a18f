// Package catalog discovers launchable applications installed on the
// machine: registry-registered installs, executables under the program
// directories, and a fixed set of well-known system tools.
package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// App is one launchable application.
type App struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Icon   string `json:"icon,omitempty"`
	Source string `json:"source"`
}

// Application sources, in merge priority order.
const (
	SourceRegistry  = "registry"
	SourceSystem    = "system"
	SourceDirectory = "directory"
)

// Config tunes discovery.
type Config struct {
	// Roots are extra directories scanned in addition to the standard
	// program directories.
	Roots []string
	// MaxDepth bounds the directory walk below each root.
	MaxDepth int
}

// Catalog caches discovery results. The first Apps call scans lazily;
// Refresh rescans on demand, MarkStale folds the rescan into the next
// Apps call instead.
type Catalog struct {
	cfg Config

	mu      sync.Mutex
	apps    []App
	scanned time.Time
	stale   bool
}

// Platform sources, replaced in tests.
var (
	registrySource = scanRegistry
	systemSource   = systemApps
	programRoots   = defaultRoots
)

func New(cfg Config) *Catalog {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 2
	}
	return &Catalog{cfg: cfg}
}

// Apps returns the cached application list, scanning on first use or
// after MarkStale.
func (c *Catalog) Apps() []App {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanned.IsZero() || c.stale {
		c.rescan()
	}
	out := make([]App, len(c.apps))
	copy(out, c.apps)
	return out
}

// Refresh rescans all sources and returns the fresh list.
func (c *Catalog) Refresh() []App {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rescan()
	out := make([]App, len(c.apps))
	copy(out, c.apps)
	return out
}

// LastScan returns when the catalog was last populated.
func (c *Catalog) LastScan() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanned
}

// MarkStale makes the next Apps call rescan. The cached list stays
// served until then, so callers on the hot path never pay for a scan
// they did not ask for.
func (c *Catalog) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

// Roots returns every directory the catalog scans, the standard program
// directories plus the configured extras. Used to watch for installs.
func (c *Catalog) Roots() []string {
	return append(programRoots(), c.cfg.Roots...)
}

// Find resolves a launch reference: an existing executable path is taken
// as-is, otherwise the catalog is searched by id, name and executable
// base name (all case-insensitive).
func (c *Catalog) Find(ref string) (App, bool) {
	if ref == "" {
		return App{}, false
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return App{ID: ref, Name: displayNameFor(ref), Path: ref, Source: SourceDirectory}, true
	}

	want := strings.ToLower(ref)
	for _, a := range c.Apps() {
		if strings.ToLower(a.ID) == want ||
			strings.ToLower(a.Name) == want ||
			strings.ToLower(filepath.Base(a.Path)) == want ||
			strings.ToLower(displayNameFor(a.Path)) == want {
			return a, true
		}
	}
	return App{}, false
}

// rescan rebuilds the application list. Caller holds c.mu.
func (c *Catalog) rescan() {
	start := time.Now()

	var apps []App
	apps = append(apps, registrySource()...)
	apps = append(apps, systemSource()...)
	for _, root := range append(programRoots(), c.cfg.Roots...) {
		apps = append(apps, ScanDirectory(root, c.cfg.MaxDepth)...)
	}

	c.apps = dedupe(apps)
	c.scanned = time.Now()
	c.stale = false
	slog.Debug("Application catalog scanned",
		"apps", len(c.apps), "duration", time.Since(start).Round(time.Millisecond))
}

// dedupe collapses entries pointing at the same executable. Input order
// is priority order, so registry entries with friendly display names win
// over bare directory hits.
func dedupe(apps []App) []App {
	seen := make(map[string]struct{}, len(apps))
	out := make([]App, 0, len(apps))
	for _, a := range apps {
		key := strings.ToLower(filepath.Clean(a.Path))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// displayNameFor derives an application name from an executable path.
func displayNameFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
