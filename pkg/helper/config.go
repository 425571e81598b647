package helper

import (
	"os"
	"path/filepath"
)

const (
	// ConfigDirEnv names an extra directory searched for configuration files
	ConfigDirEnv = "SIOGATE_CONFIG_DIR"

	defaultConfigDir = "/etc/siogate"
)

// GetCfgPath returns the path to the configuration file.
//
// Priority:
// 1. If filename is an absolute path, return it directly.
// 2. Check ./{filename}, ./configs/{filename} and $SIOGATE_CONFIG_DIR/{filename}
// 3. Otherwise, fallback to /etc/siogate/{filename}
func GetCfgPath(filename string) string {
	if filename == "" {
		panic("filename cannot be empty")
	}

	if filepath.IsAbs(filename) {
		return filename
	}

	dirs := []string{".", "configs"}
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		dirs = append(dirs, dir)
	}
	if found := findExisting(filename, dirs...); found != "" {
		return found
	}

	// fallback
	return filepath.Join(defaultConfigDir, filename)
}

// findExisting returns the absolute path of the first dir/filename that exists
func findExisting(filename string, dirs ...string) string {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
	}
	return ""
}
