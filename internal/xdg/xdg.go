// Package xdg resolves the XDG base directories the runner stores its
// artifacts under.
package xdg

import (
	"os"
	"path/filepath"
)

// CacheHome returns the XDG cache base directory, honoring
// XDG_CACHE_HOME and falling back to ~/.cache.
func CacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
		if home == "" {
			home = "/tmp"
		}
	}
	return filepath.Join(home, ".cache")
}

// AppCacheDir returns the application-specific cache directory.
func AppCacheDir(appName string) string {
	return filepath.Join(CacheHome(), appName)
}
