package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ConfigPath returns the adsync configuration directory: ~/.adsync
func ConfigPath() string {
	return filepath.Join(HomeDir(), ".adsync")
}

// CredentialsPath returns the default credentials file for a platform:
// ~/.adsync/credentials/<platform>.toml
func CredentialsPath(platform string) string {
	return filepath.Join(ConfigPath(), "credentials", platform+".toml")
}

// StatePath returns the default state database location.
func StatePath() string {
	return filepath.Join(ConfigPath(), "state.db")
}

// BackupsPath returns the state database backup directory:
// ~/.adsync/backups
func BackupsPath() string {
	return filepath.Join(ConfigPath(), "backups")
}

// ExpandPath expands a leading ~ to the home directory and resolves
// relative paths against baseDir. Returns "" for empty input.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}
