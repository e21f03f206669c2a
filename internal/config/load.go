package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// .env files in the working directory and next to the config file are loaded
// into the process environment first; existing variables win.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	envWarnings := loadDotEnv(".env", filepath.Join(filepath.Dir(resolvedPath), ".env"))

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: append([]Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}}, envWarnings...),
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: append(warnings, envWarnings...),
		Exists:   true,
	}, nil
}

// loadDotEnv loads each existing file once. Missing files are skipped.
func loadDotEnv(paths ...string) []Warning {
	var warnings []Warning
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("load %s: %v", abs, err)})
		}
	}
	return warnings
}

// ErrMissingAPIKey means the configured API key variable is unset or blank.
var ErrMissingAPIKey = errors.New("openai api key not set")

// APIKey reads the OpenAI key from the variable named by openai.api_key_env.
func APIKey(cfg Config) (string, error) {
	name := strings.TrimSpace(cfg.OpenAI.APIKeyEnv)
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", fmt.Errorf("%w: $%s is empty", ErrMissingAPIKey, name)
	}
	return key, nil
}
