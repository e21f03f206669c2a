// Package config resolves, parses, validates, and defaults uplink configuration.
package config

// Config is the fully materialized runtime configuration used by uplink.
type Config struct {
	Hotkey        HotkeyConfig
	Audio         AudioConfig
	Pipeline      PipelineConfig
	OpenAI        OpenAIConfig
	Transcription TranscriptionConfig
	Output        OutputConfig
	HTTP          HTTPConfig
	Messages      MessagesConfig
	Indicator     IndicatorConfig
	Log           LogConfig
	Debug         DebugConfig
}

// HotkeyConfig selects the trigger key and the evdev device polled for it.
type HotkeyConfig struct {
	Key            string
	Device         string
	PollIntervalMS int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input      string
	Fallback   string
	SampleRate int
}

// PipelineConfig controls cycle thresholds and the persona prompt.
type PipelineConfig struct {
	MinSamples   int
	Persona      string
	ArtifactPath string
	Workers      int
}

// OpenAIConfig configures the OpenAI-compatible endpoint used for
// transcription and reply generation.
type OpenAIConfig struct {
	BaseURL            string
	APIKeyEnv          string
	TranscriptionModel string
	Language           string
	ChatModel          string
	MaxTokens          int
	TimeoutMS          int
}

// TranscriptionConfig picks the speech-to-text backend.
type TranscriptionConfig struct {
	Backend string
	GRPC    GRPCConfig
}

// GRPCConfig addresses a gRPC speech sidecar.
type GRPCConfig struct {
	Endpoint  string
	Method    string
	TimeoutMS int
}

// OutputConfig lists the sinks every published snapshot is handed to.
type OutputConfig struct {
	DeadDrop string
	Command  CommandConfig
	NATS     NATSConfig
}

// NATSConfig enables the NATS sink when URL is set.
type NATSConfig struct {
	URL     string
	Subject string
}

// HTTPConfig controls the /start and /stop control surface.
type HTTPConfig struct {
	Enable      bool
	Listen      string
	Metrics     bool
	MetricsPath string
}

// MessagesConfig overrides status and fallback texts. Empty fields keep the
// built-in text.
type MessagesConfig struct {
	Standby             string
	Recording           string
	Processing          string
	TooShort            string
	TranscriptionFailed string
	NoResponse          string
	Silence             string
}

// IndicatorConfig controls audio cue behavior.
type IndicatorConfig struct {
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile    string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
