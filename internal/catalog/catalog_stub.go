//go:build !windows

package catalog

// Registry and system tool discovery only exist on Windows. Directory
// scanning still works everywhere, which keeps the catalog testable.

func scanRegistry() []App { return nil }

func systemApps() []App { return nil }

func defaultRoots() []string { return nil }
