package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvDataDir overrides the application data directory.
	EnvDataDir = "PLAYLISTIFY_DATA_DIR"

	// AppDirName is the directory created under the user config dir.
	AppDirName = "playlistify"

	// SettingsFileName is the settings file looked up in the data dir.
	SettingsFileName = "playlistify.lua"
)

// DataDir returns the application-owned data directory: $PLAYLISTIFY_DATA_DIR
// when set, otherwise <user config dir>/playlistify.
func DataDir() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", EnvDataDir, err)
		}
		return abs, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine user config directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// SettingsPath returns the default settings file location inside dataDir.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, SettingsFileName)
}
