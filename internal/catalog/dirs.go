package catalog

import (
	"os"
	"path/filepath"
	"strings"
)

// Directory name fragments that mark system-owned trees not worth
// walking for applications.
var skipDirFragments = []string{"Windows", "ProgramData", "$"}

// Executable name fragments that mark installers rather than
// applications.
var skipExeFragments = []string{"uninstall", "setup", "install"}

// Display name fragments that mark servicing records rather than
// applications.
var skipNameFragments = []string{"update", "hotfix", "kb"}

// ScanDirectory collects launchable executables under root. maxDepth
// bounds the walk: 1 scans only root itself, 2 additionally scans its
// immediate subdirectories, and so on.
func ScanDirectory(root string, maxDepth int) []App {
	if maxDepth <= 0 {
		return nil
	}
	var apps []App
	walkForExecutables(root, maxDepth, 0, &apps)
	return apps
}

func walkForExecutables(dir string, maxDepth, depth int, apps *[]App) {
	if depth >= maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		full := filepath.Join(dir, name)
		if e.IsDir() {
			if skipDirectory(name) {
				continue
			}
			walkForExecutables(full, maxDepth, depth+1, apps)
			continue
		}
		if !isExecutable(name) || skipExecutable(name) {
			continue
		}
		*apps = append(*apps, App{
			ID:     strings.ToLower(filepath.ToSlash(full)),
			Name:   displayNameFor(name),
			Path:   full,
			Source: SourceDirectory,
		})
	}
}

func skipDirectory(name string) bool {
	for _, frag := range skipDirFragments {
		if strings.Contains(name, frag) {
			return true
		}
	}
	return false
}

func isExecutable(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".exe")
}

func skipExecutable(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range skipExeFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func skipRegistryEntry(displayName string) bool {
	lower := strings.ToLower(displayName)
	for _, frag := range skipNameFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// findExecutable returns the first application executable directly in
// dir or one level down, skipping installers. Used to turn a registry
// InstallLocation into a launchable path.
func findExecutable(dir string) string {
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && isExecutable(e.Name()) && !skipExecutable(e.Name()) {
			return filepath.Join(dir, e.Name())
		}
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, s := range sub {
			if !s.IsDir() && isExecutable(s.Name()) && !skipExecutable(s.Name()) {
				return filepath.Join(dir, e.Name(), s.Name())
			}
		}
	}
	return ""
}

// exeFromUninstallString extracts a quoted executable path from an
// uninstall command line, for installs without a usable InstallLocation.
func exeFromUninstallString(cmd string) string {
	if !strings.Contains(cmd, ".exe") {
		return ""
	}
	start := strings.Index(cmd, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(cmd[start+1:], `"`)
	if end < 0 {
		return ""
	}
	path := cmd[start+1 : start+1+end]
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// exeFromDisplayIcon strips the icon index suffix and surrounding
// quotes from a DisplayIcon value ("C:\app\x.exe,0" or quoted forms).
func exeFromDisplayIcon(icon string) string {
	if icon == "" {
		return ""
	}
	if i := strings.Index(icon, ","); i >= 0 {
		icon = icon[:i]
	}
	icon = strings.TrimPrefix(icon, `"`)
	icon = strings.TrimSuffix(icon, `"`)
	return icon
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
