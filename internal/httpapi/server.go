// Package httpapi exposes /start and /stop over HTTP for external triggers.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rbright/uplink/internal/session"
	"github.com/rbright/uplink/internal/version"
)

// Fixed response bodies.
const (
	BodyOK           = "OK"
	BodyBusy         = "BUSY"
	BodyNotRecording = "NOT RECORDING"
	BodyReady        = "UPLINK READY"
)

// Controller is the orchestrator subset the HTTP surface drives.
type Controller interface {
	Press(context.Context) error
	Release(context.Context) (session.Result, error)
}

// Options controls optional middleware.
type Options struct {
	Metrics     bool
	MetricsPath string
	Registry    *prometheus.Registry
	Logger      *slog.Logger
}

// Server wraps the fiber app serving the control surface.
type Server struct {
	app    *fiber.App
	ctrl   Controller
	logger *slog.Logger
}

// New builds the fiber app and registers routes.
func New(ctrl Controller, opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "uplink " + version.String(),
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
	})

	if opts.Logger != nil {
		log := opts.Logger
		app.Use(logger.New(logger.Config{
			Done: func(_ *fiber.Ctx, logString []byte) {
				log.Debug("http request", "line", string(logString))
			},
			Format: "${status} | ${latency} | ${method} | ${path} | ${error}",
			Output: io.Discard,
		}))
	}

	if opts.Metrics {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		registry := opts.Registry
		if registry == nil {
			registry = prometheus.NewRegistry()
		}
		prom := fiberprometheus.NewWithRegistry(registry, "uplink", "uplink", "http", nil)
		prom.RegisterAt(app, path)
		app.Use(prom.Middleware)
	}

	s := &Server{app: app, ctrl: ctrl, logger: opts.Logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/start", s.start)
	s.app.Post("/start", s.start)
	s.app.Get("/stop", s.stop)
	s.app.Post("/stop", s.stop)
	s.app.Use(func(c *fiber.Ctx) error {
		return c.SendString(BodyReady)
	})
}

// App exposes the underlying fiber app for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) start(c *fiber.Ctx) error {
	err := s.ctrl.Press(c.UserContext())
	switch {
	case err == nil:
		return c.SendString(BodyOK)
	case errors.Is(err, session.ErrBusy):
		return c.Status(http.StatusConflict).SendString(BodyBusy)
	default:
		s.logWarn("http start failed", err)
		return c.Status(http.StatusServiceUnavailable).SendString(err.Error())
	}
}

// stop returns the committed text, which is a fallback message when the
// cycle failed downstream.
func (s *Server) stop(c *fiber.Ctx) error {
	result, err := s.ctrl.Release(c.UserContext())
	if errors.Is(err, session.ErrNotRecording) {
		return c.Status(http.StatusConflict).SendString(BodyNotRecording)
	}
	if err != nil {
		s.logWarn("http stop cycle ended with error", err)
	}
	return c.SendString(result.Reply)
}

// Run listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) logWarn(msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, "error", err.Error())
}
