package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Hotkey        *jsoncHotkey        `json:"hotkey"`
	Audio         *jsoncAudio         `json:"audio"`
	Pipeline      *jsoncPipeline      `json:"pipeline"`
	OpenAI        *jsoncOpenAI        `json:"openai"`
	Transcription *jsoncTranscription `json:"transcription"`
	Output        *jsoncOutput        `json:"output"`
	HTTP          *jsoncHTTP          `json:"http"`
	Messages      *jsoncMessages      `json:"messages"`
	Indicator     *jsoncIndicator     `json:"indicator"`
	Log           *jsoncLog           `json:"log"`
	Debug         *jsoncDebug         `json:"debug"`
}

type jsoncHotkey struct {
	Key            *string `json:"key"`
	Device         *string `json:"device"`
	PollIntervalMS *int    `json:"poll_interval_ms"`
}

type jsoncAudio struct {
	Input      *string `json:"input"`
	Fallback   *string `json:"fallback"`
	SampleRate *int    `json:"sample_rate"`
}

type jsoncPipeline struct {
	MinSamples   *int    `json:"min_samples"`
	Persona      *string `json:"persona"`
	ArtifactPath *string `json:"artifact_path"`
	Workers      *int    `json:"workers"`
}

type jsoncOpenAI struct {
	BaseURL            *string `json:"base_url"`
	APIKeyEnv          *string `json:"api_key_env"`
	TranscriptionModel *string `json:"transcription_model"`
	Language           *string `json:"language"`
	ChatModel          *string `json:"chat_model"`
	MaxTokens          *int    `json:"max_tokens"`
	TimeoutMS          *int    `json:"timeout_ms"`
}

type jsoncTranscription struct {
	Backend *string    `json:"backend"`
	GRPC    *jsoncGRPC `json:"grpc"`
}

type jsoncGRPC struct {
	Endpoint  *string `json:"endpoint"`
	Method    *string `json:"method"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncOutput struct {
	DeadDrop *string    `json:"dead_drop"`
	Command  *string    `json:"command"`
	NATS     *jsoncNATS `json:"nats"`
}

type jsoncNATS struct {
	URL     *string `json:"url"`
	Subject *string `json:"subject"`
}

type jsoncHTTP struct {
	Enable      *bool   `json:"enable"`
	Listen      *string `json:"listen"`
	Metrics     *bool   `json:"metrics"`
	MetricsPath *string `json:"metrics_path"`
}

type jsoncMessages struct {
	Standby             *string `json:"standby"`
	Recording           *string `json:"recording"`
	Processing          *string `json:"processing"`
	TooShort            *string `json:"too_short"`
	TranscriptionFailed *string `json:"transcription_failed"`
	NoResponse          *string `json:"no_response"`
	Silence             *string `json:"silence"`
}

type jsoncIndicator struct {
	SoundEnable  *bool   `json:"sound_enable"`
	StartFile    *string `json:"start_file"`
	StopFile     *string `json:"stop_file"`
	CompleteFile *string `json:"complete_file"`
	ErrorFile    *string `json:"error_file"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if h := payload.Hotkey; h != nil {
		setString(&cfg.Hotkey.Key, h.Key)
		setString(&cfg.Hotkey.Device, h.Device)
		setInt(&cfg.Hotkey.PollIntervalMS, h.PollIntervalMS)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setInt(&cfg.Audio.SampleRate, a.SampleRate)
	}

	if p := payload.Pipeline; p != nil {
		setInt(&cfg.Pipeline.MinSamples, p.MinSamples)
		setString(&cfg.Pipeline.Persona, p.Persona)
		setString(&cfg.Pipeline.ArtifactPath, p.ArtifactPath)
		setInt(&cfg.Pipeline.Workers, p.Workers)
	}

	if o := payload.OpenAI; o != nil {
		setString(&cfg.OpenAI.BaseURL, o.BaseURL)
		setString(&cfg.OpenAI.APIKeyEnv, o.APIKeyEnv)
		setString(&cfg.OpenAI.TranscriptionModel, o.TranscriptionModel)
		setString(&cfg.OpenAI.Language, o.Language)
		setString(&cfg.OpenAI.ChatModel, o.ChatModel)
		setInt(&cfg.OpenAI.MaxTokens, o.MaxTokens)
		setInt(&cfg.OpenAI.TimeoutMS, o.TimeoutMS)
	}

	if t := payload.Transcription; t != nil {
		if t.Backend != nil {
			cfg.Transcription.Backend = strings.ToLower(strings.TrimSpace(*t.Backend))
		}
		if g := t.GRPC; g != nil {
			setString(&cfg.Transcription.GRPC.Endpoint, g.Endpoint)
			setString(&cfg.Transcription.GRPC.Method, g.Method)
			setInt(&cfg.Transcription.GRPC.TimeoutMS, g.TimeoutMS)
		}
	}

	if out := payload.Output; out != nil {
		setString(&cfg.Output.DeadDrop, out.DeadDrop)
		if out.Command != nil {
			raw := *out.Command
			argv, err := parseArgv(raw)
			if err != nil {
				return fmt.Errorf("invalid output.command: %w", err)
			}
			cfg.Output.Command = CommandConfig{Raw: raw, Argv: argv}
		}
		if n := out.NATS; n != nil {
			setString(&cfg.Output.NATS.URL, n.URL)
			setString(&cfg.Output.NATS.Subject, n.Subject)
		}
	}

	if h := payload.HTTP; h != nil {
		setBool(&cfg.HTTP.Enable, h.Enable)
		setString(&cfg.HTTP.Listen, h.Listen)
		setBool(&cfg.HTTP.Metrics, h.Metrics)
		setString(&cfg.HTTP.MetricsPath, h.MetricsPath)
	}

	// Message texts are kept verbatim; surrounding spaces are part of the display.
	if m := payload.Messages; m != nil {
		for dst, src := range map[*string]*string{
			&cfg.Messages.Standby:             m.Standby,
			&cfg.Messages.Recording:           m.Recording,
			&cfg.Messages.Processing:          m.Processing,
			&cfg.Messages.TooShort:            m.TooShort,
			&cfg.Messages.TranscriptionFailed: m.TranscriptionFailed,
			&cfg.Messages.NoResponse:          m.NoResponse,
			&cfg.Messages.Silence:             m.Silence,
		} {
			if src != nil {
				*dst = *src
			}
		}
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.StartFile)
		setString(&cfg.Indicator.SoundStopFile, i.StopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.CompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, i.ErrorFile)
	}

	if l := payload.Log; l != nil && l.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*l.Level))
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.EnableAudioDump, d.AudioDump)
	}

	return nil
}

// normalizeJSONC blanks comments and drops trailing commas so encoding/json
// can decode the result. Byte offsets are preserved for comment removal so
// decode errors still point at the right line.
func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

// stringTracker follows JSON string boundaries byte by byte.
type stringTracker struct {
	inString bool
	escape   bool
}

// consume reports whether ch belongs to a string literal (including quotes).
func (s *stringTracker) consume(ch byte) bool {
	if s.inString {
		switch {
		case s.escape:
			s.escape = false
		case ch == '\\':
			s.escape = true
		case ch == '"':
			s.inString = false
		}
		return true
	}
	if ch == '"' {
		s.inString = true
		return true
	}
	return false
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	var str stringTracker
	lineComment, blockComment := false, false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch {
		case lineComment:
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		case blockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
			} else if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if str.consume(ch) {
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			switch content[i+1] {
			case '/':
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			case '*':
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	var str stringTracker
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if !str.consume(ch) && ch == ',' && closesAfter(content, i+1) {
			continue
		}
		out.WriteByte(ch)
	}
	return out.String()
}

// closesAfter reports whether the next non-whitespace byte from i closes an
// object or array.
func closesAfter(content string, i int) bool {
	for i < len(content) {
		switch content[i] {
		case ' ', '\n', '\r', '\t':
			i++
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))
	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
