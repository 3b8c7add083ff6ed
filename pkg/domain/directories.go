package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// UserConfigDir returns the default configuration directory for the application.
// It follows platform-specific conventions:
//   - Linux/Unix: $XDG_CONFIG_HOME/nftroute or $HOME/.config/nftroute
//   - macOS: $HOME/Library/Application Support/nftroute
//   - Windows: %LocalAppData%\nftroute\config
func UserConfigDir() (string, error) {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		return configDir, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("LocalAppData")
		if base == "" {
			return "", fmt.Errorf("%%LocalAppData%% is not defined")
		}
		return filepath.Join(base, AppName, "config"), nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil

	default: // Linux and other Unix-like systems
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, AppName), nil
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, ".config", AppName), nil
	}
}

// EnsureDir ensures that the specified directory exists, creating it if necessary.
// It creates all parent directories as needed with permissions 0755.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
