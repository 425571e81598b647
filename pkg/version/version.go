package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var Version string

// Get returns the current version of the application
func Get() string {
	return strings.TrimSpace(Version)
}

// String returns the version line printed by the CLI
func String(name string) string {
	return name + " version " + Get() + " (" + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
