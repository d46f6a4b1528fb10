package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a user supplied file path. A leading ~ becomes the home
// directory, then $VAR references are replaced.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		path = homeDir()
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(homeDir(), path[2:])
	}
	return os.ExpandEnv(path)
}

// DefaultConfigDir is searched for config.yaml when no --config is given.
// $XDG_CONFIG_HOME takes precedence over ~/.config.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "fraudwatch")
	}
	return ExpandPath("~/.config/fraudwatch")
}

// homeDir falls back to a literal ~ so an unresolvable path stays recognizable.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return home
}
