package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bnema/tarpush/pkg/docker"
)

// getConfigDir resolves the configuration directory: the working directory in
// a container, then $XDG_CONFIG_HOME/tarpush, then the per-OS user location.
func getConfigDir() (string, error) {
	if docker.IsRunningInContainer() {
		return ".", nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tarpush"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user home directory: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(homeDir, "AppData", "Local", "tarpush"), nil
	}
	return filepath.Join(homeDir, ".config", "tarpush"), nil
}

// ConfigFilePath is where LoadConfig looks when no --config flag is given.
func ConfigFilePath() (string, error) {
	dir, err := getConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting configuration directory: %w", err)
	}
	return filepath.Join(dir, ConfigFileName), nil
}
