// Package app wires configuration into a running uplink process and hosts the
// CLI command handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/config"
	"github.com/rbright/uplink/internal/hotkey"
	"github.com/rbright/uplink/internal/httpapi"
	"github.com/rbright/uplink/internal/indicator"
	"github.com/rbright/uplink/internal/ipc"
	"github.com/rbright/uplink/internal/llm"
	"github.com/rbright/uplink/internal/output"
	"github.com/rbright/uplink/internal/session"
	"github.com/rbright/uplink/internal/state"
	"github.com/rbright/uplink/internal/stt"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// ErrHotkeyUnavailable means the configured trigger key could not be opened.
var ErrHotkeyUnavailable = errors.New("hotkey unavailable")

// Runtime is the process-wide context built once at startup and shared by
// every surface: hotkey loop, control socket, HTTP, and the host bridge.
type Runtime struct {
	Config       config.Config
	Logger       *slog.Logger
	Registry     *prometheus.Registry
	Store        *state.Store
	Orchestrator *session.Orchestrator
	Responder    session.Responder
	Persona      string
	Messages     session.Messages

	cues    *indicator.Cues
	closers []func() error
}

// Surfaces selects which inputs a Runtime serves.
type Surfaces struct {
	Hotkey bool
	Socket bool
	HTTP   bool
}

// Build constructs every collaborator from cfg. Nothing is started until Run.
func Build(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	apiKey, err := config.APIKey(cfg)
	if err != nil {
		return nil, err
	}
	client := newOpenAIClient(cfg.OpenAI, apiKey)

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Persona:  cfg.Pipeline.Persona,
		Messages: messagesFromConfig(cfg.Messages),
	}
	if strings.TrimSpace(rt.Persona) == "" {
		rt.Persona = llm.DefaultPersona
	}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	transcriber, err := rt.buildTranscriber(client)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	responder, err := llm.NewResponder(client, cfg.OpenAI.ChatModel, cfg.OpenAI.MaxTokens)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Responder = responder

	sink, err := rt.buildSinks()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	recorder := audio.NewRecorder(audio.PulseBackend{
		Input:      cfg.Audio.Input,
		Fallback:   cfg.Audio.Fallback,
		SampleRate: cfg.Audio.SampleRate,
		OnWarning: func(msg string) {
			logger.Warn("audio device fallback", "message", msg)
		},
	})

	rt.cues = indicator.New(cfg.Indicator, logger)
	rt.Store = state.NewStore(rt.Messages.Standby)
	rt.Orchestrator = session.New(session.Options{
		Recorder:     recorder,
		Transcriber:  transcriber,
		Responder:    responder,
		Publisher:    sink,
		Indicator:    rt.cues,
		Store:        rt.Store,
		Logger:       logger,
		Metrics:      session.NewMetrics(rt.Registry),
		Messages:     rt.Messages,
		Persona:      rt.Persona,
		MinSamples:   cfg.Pipeline.MinSamples,
		ArtifactPath: cfg.Pipeline.ArtifactPath,
		AudioDump:    cfg.Debug.EnableAudioDump,
		Workers:      cfg.Pipeline.Workers,
	})

	if err := sink.Publish(context.Background(), rt.Store.Read()); err != nil {
		logger.Warn("publish initial state failed", "error", err.Error())
	}
	return rt, nil
}

func newOpenAIClient(cfg config.OpenAIConfig, apiKey string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	return openai.NewClientWithConfig(clientCfg)
}

func (rt *Runtime) buildTranscriber(client *openai.Client) (session.Transcriber, error) {
	cfg := rt.Config
	if cfg.Transcription.Backend != config.BackendGRPC {
		return stt.NewOpenAI(client, cfg.OpenAI.TranscriptionModel, cfg.OpenAI.Language)
	}

	g, err := stt.DialGRPC(stt.GRPCConfig{
		Endpoint: cfg.Transcription.GRPC.Endpoint,
		Method:   cfg.Transcription.GRPC.Method,
		Language: cfg.OpenAI.Language,
		Timeout:  time.Duration(cfg.Transcription.GRPC.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, g.Close)
	return g, nil
}

func (rt *Runtime) buildSinks() (output.Fanout, error) {
	cfg := rt.Config
	path, err := config.DeadDropPath(cfg)
	if err != nil {
		return nil, err
	}
	sinks := output.Fanout{output.NewDeadDrop(path)}
	rt.Logger.Info("dead-drop configured", "path", path)

	if len(cfg.Output.Command.Argv) > 0 {
		sinks = append(sinks, output.NewCommand(cfg.Output.Command.Argv, 0))
	}

	if cfg.Output.NATS.URL != "" {
		nc, err := output.ConnectNATS(cfg.Output.NATS.URL, cfg.Output.NATS.Subject, 0, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() error { nc.Close(); return nil })
		sinks = append(sinks, nc)
	}
	return sinks, nil
}

func messagesFromConfig(m config.MessagesConfig) session.Messages {
	return session.Messages{
		Standby:             m.Standby,
		Recording:           m.Recording,
		Processing:          m.Processing,
		TooShort:            m.TooShort,
		TranscriptionFailed: m.TranscriptionFailed,
		NoResponse:          m.NoResponse,
		Silence:             m.Silence,
	}.WithDefaults()
}

// Run serves the selected surfaces until ctx ends or one of them fails. A
// hotkey poll failure is logged and leaves the other surfaces running.
func (rt *Runtime) Run(ctx context.Context, surfaces Surfaces) error {
	g, ctx := errgroup.WithContext(ctx)

	var edges <-chan hotkey.Edge
	if surfaces.Hotkey {
		monitor, closeSource, err := rt.openMonitor()
		if err != nil {
			return err
		}
		defer func() { _ = closeSource() }()
		edges = monitor.Edges()
		g.Go(func() error {
			if err := monitor.Run(ctx); err != nil {
				rt.Logger.Error("hotkey monitor stopped", "error", err.Error())
			}
			return nil
		})
	}

	if surfaces.Socket {
		socketPath, err := ipc.RuntimeSocketPath()
		if err != nil {
			return err
		}
		listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(socketPath) }()
		rt.Logger.Info("control socket listening", "path", socketPath)
		g.Go(func() error {
			return ipc.Serve(ctx, listener, rt.Orchestrator)
		})
	}

	if surfaces.HTTP {
		server := httpapi.New(rt.Orchestrator, httpapi.Options{
			Metrics:     rt.Config.HTTP.Metrics,
			MetricsPath: rt.Config.HTTP.MetricsPath,
			Registry:    rt.Registry,
			Logger:      rt.Logger,
		})
		rt.Logger.Info("http surface listening", "addr", rt.Config.HTTP.Listen)
		g.Go(func() error {
			if err := server.Run(ctx, rt.Config.HTTP.Listen); err != nil {
				return fmt.Errorf("http surface: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return rt.Orchestrator.Run(ctx, edges)
	})

	return g.Wait()
}

func (rt *Runtime) openMonitor() (*hotkey.Monitor, func() error, error) {
	src, err := hotkey.OpenEvdev(rt.Config.Hotkey.Device, rt.Config.Hotkey.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrHotkeyUnavailable, err)
	}
	rt.Logger.Info("hotkey armed", "key", rt.Config.Hotkey.Key, "devices", src.Devices())
	interval := time.Duration(rt.Config.Hotkey.PollIntervalMS) * time.Millisecond
	return hotkey.NewMonitor(src, interval, rt.Logger), src.Close, nil
}

// Close shuts the orchestrator down, waits for queued cues, and releases
// transport connections.
func (rt *Runtime) Close() error {
	if rt.Orchestrator != nil {
		rt.Orchestrator.Close(context.Background())
	}
	if rt.cues != nil {
		rt.cues.Wait()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
