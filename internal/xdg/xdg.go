// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package xdg locates StockCtrl files under the XDG Base Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "stockctrl"

// ConfigFileName is the file looked up in ConfigDir when no --config flag
// is given.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for stockctrl.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir(getenv func(string) string) string {
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of the user config file, or "" if it
// does not exist.
func DefaultConfigFile(getenv func(string) string) string {
	path := filepath.Join(ConfigDir(getenv), ConfigFileName)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}
