package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for the config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "uplink", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "uplink", "config.jsonc"), nil
}

// DeadDropPath returns output.dead_drop, or output.txt under the uplink state
// dir when unset.
func DeadDropPath(cfg Config) (string, error) {
	if p := strings.TrimSpace(cfg.Output.DeadDrop); p != "" {
		return p, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "uplink", "output.txt"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for dead-drop fallback")
	}
	return filepath.Join(home, ".local", "state", "uplink", "output.txt"), nil
}
