//go:build windows

package catalog

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

// registryView selects one of the uninstall databases: the 64-bit and
// 32-bit machine views plus per-user installs.
type registryView struct {
	root   registry.Key
	access uint32
}

var registryViews = []registryView{
	{registry.LOCAL_MACHINE, registry.READ | registry.WOW64_64KEY},
	{registry.LOCAL_MACHINE, registry.READ | registry.WOW64_32KEY},
	{registry.CURRENT_USER, registry.READ},
}

// scanRegistry reads installed applications from the uninstall registry
// database. Entries without a resolvable executable are dropped, as are
// servicing records (updates, hotfixes, KB entries).
func scanRegistry() []App {
	var apps []App
	for _, view := range registryViews {
		apps = append(apps, scanUninstallKey(view)...)
	}
	return apps
}

func scanUninstallKey(view registryView) []App {
	key, err := registry.OpenKey(view.root, uninstallKeyPath, registry.ENUMERATE_SUB_KEYS|view.access)
	if err != nil {
		return nil
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}

	var apps []App
	for _, name := range names {
		sub, err := registry.OpenKey(view.root, uninstallKeyPath+`\`+name, registry.QUERY_VALUE|view.access)
		if err != nil {
			continue
		}
		app, ok := appFromUninstallEntry(name, sub)
		sub.Close()
		if ok {
			apps = append(apps, app)
		}
	}
	return apps
}

// appFromUninstallEntry builds an App from a single uninstall entry.
// The launch path is resolved from InstallLocation first, then from a
// quoted UninstallString path, then from DisplayIcon.
func appFromUninstallEntry(keyName string, key registry.Key) (App, bool) {
	displayName, _, err := key.GetStringValue("DisplayName")
	if err != nil || displayName == "" || skipRegistryEntry(displayName) {
		return App{}, false
	}

	installLocation, _, _ := key.GetStringValue("InstallLocation")
	uninstallString, _, _ := key.GetStringValue("UninstallString")
	displayIcon, _, _ := key.GetStringValue("DisplayIcon")

	path := findExecutable(installLocation)
	if path == "" {
		path = exeFromUninstallString(uninstallString)
	}
	if path == "" {
		if icon := exeFromDisplayIcon(displayIcon); fileExists(icon) {
			path = icon
		}
	}
	if path == "" {
		return App{}, false
	}

	return App{
		ID:     keyName,
		Name:   displayName,
		Path:   path,
		Icon:   exeFromDisplayIcon(displayIcon),
		Source: SourceRegistry,
	}, true
}

// systemApps returns the well-known Windows tools that exist on this
// machine. These live under the system root and never show up in the
// uninstall database.
func systemApps() []App {
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = `C:\Windows`
	}

	known := []struct {
		name string
		rel  string
	}{
		{"Notepad", `System32\notepad.exe`},
		{"Calculator", `System32\calc.exe`},
		{"Paint", `System32\mspaint.exe`},
		{"Command Prompt", `System32\cmd.exe`},
		{"Windows PowerShell", `System32\WindowsPowerShell\v1.0\powershell.exe`},
		{"Task Manager", `System32\taskmgr.exe`},
		{"Registry Editor", `regedit.exe`},
		{"Character Map", `System32\charmap.exe`},
		{"Snipping Tool", `System32\SnippingTool.exe`},
		{"Magnifier", `System32\magnify.exe`},
		{"On-Screen Keyboard", `System32\osk.exe`},
		{"Remote Desktop Connection", `System32\mstsc.exe`},
	}

	var apps []App
	for _, k := range known {
		path := filepath.Join(root, k.rel)
		if !fileExists(path) {
			continue
		}
		apps = append(apps, App{
			ID:     filepath.Base(k.rel) + "_system",
			Name:   k.name,
			Path:   path,
			Icon:   path,
			Source: SourceSystem,
		})
	}
	return apps
}

// defaultRoots returns the standard program directories.
func defaultRoots() []string {
	roots := make([]string, 0, 2)
	if dir := os.Getenv("ProgramFiles"); dir != "" {
		roots = append(roots, dir)
	} else {
		roots = append(roots, `C:\Program Files`)
	}
	if dir := os.Getenv("ProgramFiles(x86)"); dir != "" {
		roots = append(roots, dir)
	} else {
		roots = append(roots, `C:\Program Files (x86)`)
	}
	return roots
}
