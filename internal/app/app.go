package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/cli"
	"github.com/rbright/uplink/internal/config"
	"github.com/rbright/uplink/internal/doctor"
	"github.com/rbright/uplink/internal/ipc"
	"github.com/rbright/uplink/internal/logging"
	"github.com/rbright/uplink/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

// stopTimeout covers a full transcribe+respond cycle behind a forwarded stop.
const stopTimeout = 2 * time.Minute

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("uplink"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("uplink"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if parsed.Command.Forwarded() {
		return r.forwardOrFail(ctx, parsed.Command)
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	if level, err := logging.ParseLevel(cfgLoaded.Config.Log.Level); err == nil {
		logRuntime.SetLevel(level)
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"version", version.Short(),
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandRun:
		return r.commandDaemon(ctx, cfgLoaded.Config, logger, Surfaces{Hotkey: true, Socket: true, HTTP: cfgLoaded.Config.HTTP.Enable})
	case cli.CommandServe:
		return r.commandDaemon(ctx, cfgLoaded.Config, logger, Surfaces{Socket: true, HTTP: cfgLoaded.Config.HTTP.Enable})
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger, surfaces Surfaces) int {
	rt, err := Build(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build runtime failed", "error", err.Error())
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", "error", err.Error())
		}
	}()

	err = rt.Run(ctx, surfaces)
	switch {
	case errors.Is(err, ipc.ErrAlreadyRunning):
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	case err != nil && !errors.Is(err, context.Canceled):
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("runtime failed", "error", err.Error())
		return 1
	}
	logger.Info("runtime stopped")
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// forwardOrFail sends command to the running daemon and prints its answer.
// status falls back to "idle" when no daemon is listening.
func (r Runner) forwardOrFail(ctx context.Context, command cli.Command) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	timeout := forwardTimeout
	if command == cli.CommandStop {
		timeout = stopTimeout
	}

	resp, handled, err := tryForward(ctx, socketPath, string(command), timeout)
	if !handled {
		if command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", ipc.ErrNoDaemon)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	switch command {
	case cli.CommandStatus:
		fmt.Fprintln(r.Stdout, resp.Snapshot().Phase)
	case cli.CommandReply, cli.CommandStop:
		fmt.Fprintln(r.Stdout, resp.Text)
		if resp.Error != "" {
			fmt.Fprintf(r.Stderr, "warning: %s\n", resp.Error)
		}
	default:
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
	}
	return 0
}

// tryForward reports handled=false when no daemon owns the socket.
func tryForward(ctx context.Context, socketPath string, command string, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Call(ctx, socketPath, command, timeout)
	if err == nil {
		return resp, true, nil
	}
	if errors.Is(err, ipc.ErrNoDaemon) {
		return ipc.Response{}, false, nil
	}

	var remote *ipc.RemoteError
	if errors.As(err, &remote) {
		return resp, true, remote
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
