package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Hotkey.Key) == "" {
		return nil, fmt.Errorf("hotkey.key must not be empty")
	}
	if cfg.Hotkey.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("hotkey.poll_interval_ms must be > 0")
	}
	if cfg.Hotkey.PollIntervalMS > 100 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("hotkey.poll_interval_ms=%d may miss short key presses", cfg.Hotkey.PollIntervalMS)})
	}
	if cfg.Audio.SampleRate < 0 {
		return nil, fmt.Errorf("audio.sample_rate must be >= 0")
	}

	if cfg.Pipeline.MinSamples < 0 {
		return nil, fmt.Errorf("pipeline.min_samples must be >= 0")
	}
	if cfg.Pipeline.Workers <= 0 {
		return nil, fmt.Errorf("pipeline.workers must be > 0")
	}

	if strings.TrimSpace(cfg.OpenAI.APIKeyEnv) == "" {
		return nil, fmt.Errorf("openai.api_key_env must not be empty")
	}
	if base := strings.TrimSpace(cfg.OpenAI.BaseURL); base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("openai.base_url must be an absolute URL")
		}
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		return nil, fmt.Errorf("openai.max_tokens must be > 0")
	}
	if cfg.OpenAI.TimeoutMS <= 0 {
		return nil, fmt.Errorf("openai.timeout_ms must be > 0")
	}

	switch cfg.Transcription.Backend {
	case BackendOpenAI:
	case BackendGRPC:
		if strings.TrimSpace(cfg.Transcription.GRPC.Endpoint) == "" {
			return nil, fmt.Errorf("transcription.grpc.endpoint must not be empty when transcription.backend=grpc")
		}
		if !strings.HasPrefix(cfg.Transcription.GRPC.Method, "/") {
			return nil, fmt.Errorf("transcription.grpc.method must start with '/'")
		}
		if cfg.Transcription.GRPC.TimeoutMS <= 0 {
			return nil, fmt.Errorf("transcription.grpc.timeout_ms must be > 0")
		}
	default:
		return nil, fmt.Errorf("transcription.backend must be one of: openai, grpc")
	}

	if cfg.Output.Command.Raw != "" && len(cfg.Output.Command.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "output.command is commented out; command sink disabled"})
	}
	if cfg.Output.NATS.URL != "" && strings.TrimSpace(cfg.Output.NATS.Subject) == "" {
		return nil, fmt.Errorf("output.nats.subject must not be empty when output.nats.url is set")
	}

	if cfg.HTTP.Enable {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Listen); err != nil {
			return nil, fmt.Errorf("http.listen must be host:port: %w", err)
		}
		if cfg.HTTP.Metrics && !strings.HasPrefix(cfg.HTTP.MetricsPath, "/") {
			return nil, fmt.Errorf("http.metrics_path must start with '/'")
		}
	}

	if !logLevels[cfg.Log.Level] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
