package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty hotkey", mutate: func(c *Config) { c.Hotkey.Key = "" }, wantErr: "hotkey.key"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Hotkey.PollIntervalMS = 0 }, wantErr: "poll_interval_ms"},
		{name: "negative sample rate", mutate: func(c *Config) { c.Audio.SampleRate = -1 }, wantErr: "audio.sample_rate"},
		{name: "negative min samples", mutate: func(c *Config) { c.Pipeline.MinSamples = -1 }, wantErr: "pipeline.min_samples"},
		{name: "zero workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, wantErr: "pipeline.workers"},
		{name: "empty api key env", mutate: func(c *Config) { c.OpenAI.APIKeyEnv = " " }, wantErr: "api_key_env"},
		{name: "relative base url", mutate: func(c *Config) { c.OpenAI.BaseURL = "localhost/v1" }, wantErr: "base_url"},
		{name: "zero max tokens", mutate: func(c *Config) { c.OpenAI.MaxTokens = 0 }, wantErr: "max_tokens"},
		{name: "zero openai timeout", mutate: func(c *Config) { c.OpenAI.TimeoutMS = 0 }, wantErr: "openai.timeout_ms"},
		{name: "unknown backend", mutate: func(c *Config) { c.Transcription.Backend = "whisper-local" }, wantErr: "transcription.backend"},
		{name: "grpc without endpoint", mutate: func(c *Config) {
			c.Transcription.Backend = BackendGRPC
			c.Transcription.GRPC.Endpoint = ""
		}, wantErr: "grpc.endpoint"},
		{name: "grpc bad method", mutate: func(c *Config) {
			c.Transcription.Backend = BackendGRPC
			c.Transcription.GRPC.Method = "Transcribe"
		}, wantErr: "grpc.method"},
		{name: "nats without subject", mutate: func(c *Config) {
			c.Output.NATS.URL = "nats://127.0.0.1:4222"
			c.Output.NATS.Subject = ""
		}, wantErr: "nats.subject"},
		{name: "bad listen", mutate: func(c *Config) {
			c.HTTP.Enable = true
			c.HTTP.Listen = "8787"
		}, wantErr: "http.listen"},
		{name: "bad metrics path", mutate: func(c *Config) {
			c.HTTP.Enable = true
			c.HTTP.MetricsPath = "metrics"
		}, wantErr: "metrics_path"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnSlowPollAndDisabledCommand(t *testing.T) {
	cfg := Default()
	cfg.Hotkey.PollIntervalMS = 250
	cfg.Output.Command = CommandConfig{Raw: "# espeak-ng"}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "poll_interval_ms")
	require.Contains(t, warnings[1].Message, "output.command")
}

func TestValidateIgnoresHTTPFieldsWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Listen = "nonsense"
	_, err := Validate(cfg)
	require.NoError(t, err)
}
