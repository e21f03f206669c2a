package config

// Transcription backends.
const (
	BackendOpenAI = "openai"
	BackendGRPC   = "grpc"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Hotkey: HotkeyConfig{
			Key:            "KEY_KP7",
			PollIntervalMS: 10,
		},
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			SampleRate: 16000,
		},
		Pipeline: PipelineConfig{
			MinSamples: 1000,
			Workers:    1,
		},
		OpenAI: OpenAIConfig{
			APIKeyEnv:          "OPENAI_API_KEY",
			TranscriptionModel: "whisper-1",
			ChatModel:          "gpt-4o-mini",
			MaxTokens:          64,
			TimeoutMS:          30000,
		},
		Transcription: TranscriptionConfig{
			Backend: BackendOpenAI,
			GRPC: GRPCConfig{
				Endpoint:  "127.0.0.1:50051",
				Method:    "/uplink.speech.v1.SpeechToText/Transcribe",
				TimeoutMS: 15000,
			},
		},
		Output: OutputConfig{
			NATS: NATSConfig{Subject: "uplink.reply"},
		},
		HTTP: HTTPConfig{
			Listen:      "127.0.0.1:8787",
			Metrics:     true,
			MetricsPath: "/metrics",
		},
		Indicator: IndicatorConfig{SoundEnable: true},
		Log:       LogConfig{Level: "info"},
	}
}
