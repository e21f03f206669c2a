// Command uplink-plugin builds the uplink pipeline as a C shared library for
// game-host integration:
//
//	go build -buildmode=c-shared -o libuplink.so ./cmd/uplink-plugin
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/uplink/internal/app"
	"github.com/rbright/uplink/internal/config"
	"github.com/rbright/uplink/internal/hostapi"
	"github.com/rbright/uplink/internal/logging"
)

var errAlreadyLoaded = errors.New("uplink already loaded")

// host owns the single in-process runtime behind the exports.
type host struct {
	mu      sync.Mutex
	rt      *app.Runtime
	bridge  *hostapi.Bridge
	logger  *slog.Logger
	logs    logging.Runtime
	cancel  context.CancelFunc
	stopped chan struct{}
}

var current host

func (h *host) load(configPath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rt != nil {
		return errAlreadyLoaded
	}

	logs, err := logging.New()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		_ = logs.Close()
		return err
	}
	if level, err := logging.ParseLevel(loaded.Config.Log.Level); err == nil {
		logs.SetLevel(level)
	}
	logger := logs.Logger
	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	rt, err := app.Build(loaded.Config, logger)
	if err != nil {
		logger.Error("build runtime failed", "error", err.Error())
		_ = logs.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	surfaces := app.Surfaces{Hotkey: true, HTTP: loaded.Config.HTTP.Enable}
	go func() {
		defer close(stopped)
		err := rt.Run(ctx, surfaces)
		if errors.Is(err, app.ErrHotkeyUnavailable) {
			// The host can still drive recording through UplinkSetRecording.
			logger.Warn("hotkey disabled", "error", err.Error())
			surfaces.Hotkey = false
			err = rt.Run(ctx, surfaces)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("plugin runtime stopped", "error", err.Error())
		}
	}()

	h.rt = rt
	h.logs = logs
	h.logger = logger
	h.cancel = cancel
	h.stopped = stopped
	h.bridge = hostapi.New(hostapi.Options{
		Engine:    rt.Orchestrator,
		Responder: rt.Responder,
		Persona:   rt.Persona,
		Fallback:  rt.Messages.NoResponse,
		Logger:    logger,
	})
	logger.Info("plugin loaded", "config", loaded.Path)
	return nil
}

func (h *host) unload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rt == nil {
		return
	}
	h.cancel()
	<-h.stopped
	h.bridge.Close()
	if err := h.rt.Close(); err != nil {
		h.logger.Warn("runtime close failed", "error", err.Error())
	}
	h.logger.Info("plugin unloaded")
	_ = h.logs.Close()

	h.rt, h.bridge, h.logger, h.cancel, h.stopped = nil, nil, nil, nil, nil
	h.logs = logging.Runtime{}
}

func (h *host) active() *hostapi.Bridge {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bridge
}

func (h *host) replyText() string {
	if b := h.active(); b != nil {
		return b.ReplyText()
	}
	return ""
}

func (h *host) phaseTag() string {
	if b := h.active(); b != nil {
		return b.PhaseTag()
	}
	return "IDLE"
}

func (h *host) setRecording(on bool) bool {
	if b := h.active(); b != nil {
		return b.SetRecording(context.Background(), on)
	}
	return false
}

func (h *host) entityResponse(entity string) string {
	if b := h.active(); b != nil {
		return b.EntityResponse(context.Background(), entity)
	}
	return ""
}

// recovered logs a panic that escaped an export.
func (h *host) recovered(export string, r any) {
	h.mu.Lock()
	logger := h.logger
	h.mu.Unlock()
	if logger != nil {
		logger.Error("plugin export panicked", "export", export, "panic", fmt.Sprint(r))
	}
}

func main() {}
