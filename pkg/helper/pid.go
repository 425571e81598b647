package helper

import (
	"os"
	"path/filepath"
)

const defaultPIDFile = "/var/run/siogate.pid"

// GetPIDPath returns the path to the PID file.
//
// Absolute paths are returned as-is. A relative path is resolved against the
// working directory when its parent directory exists, otherwise the default
// /var/run/siogate.pid is used.
func GetPIDPath(filename string) string {
	if filename == "" {
		return defaultPIDFile
	}
	if filepath.IsAbs(filename) {
		return filename
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		return defaultPIDFile
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return defaultPIDFile
	}
	return abs
}
