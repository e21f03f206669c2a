// Package doctor runs readiness diagnostics for config, input devices, and the
// speech and reply backends.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/config"
	"github.com/rbright/uplink/internal/hotkey"
	"github.com/rbright/uplink/internal/output"
	"github.com/rbright/uplink/internal/stt"
)

const checkTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkHotkey(cfg.Hotkey))
	checks = append(checks, checkAudioSelection(ctx, cfg))
	checks = append(checks, checkAPIKey(cfg))
	if cfg.Transcription.Backend == config.BackendGRPC {
		checks = append(checks, checkSpeechSidecar(ctx, cfg.Transcription.GRPC))
	}
	checks = append(checks, checkDeadDrop(cfg))
	if len(cfg.Output.Command.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Output.Command.Argv, "output.command"))
	}
	if cfg.Output.NATS.URL != "" {
		checks = append(checks, checkNATS(cfg.Output.NATS))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

// checkHotkey opens the configured keyboard devices and samples the key once.
func checkHotkey(cfg config.HotkeyConfig) Check {
	src, err := hotkey.OpenEvdev(cfg.Device, cfg.Key)
	if err != nil {
		return Check{Name: "hotkey", Pass: false, Message: err.Error()}
	}
	defer src.Close()

	if _, err := src.Pressed(); err != nil {
		return Check{Name: "hotkey", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hotkey", Pass: true, Message: fmt.Sprintf("%s on %s", cfg.Key, strings.Join(src.Devices(), ", "))}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkAPIKey(cfg config.Config) Check {
	if _, err := config.APIKey(cfg); err != nil {
		return Check{Name: "openai.api_key", Pass: false, Message: err.Error()}
	}
	return Check{Name: "openai.api_key", Pass: true, Message: fmt.Sprintf("$%s is set", cfg.OpenAI.APIKeyEnv)}
}

// checkSpeechSidecar waits briefly for a Ready gRPC connection.
func checkSpeechSidecar(ctx context.Context, cfg config.GRPCConfig) Check {
	if err := stt.CheckReady(ctx, cfg.Endpoint, checkTimeout); err != nil {
		return Check{Name: "transcription.grpc", Pass: false, Message: err.Error()}
	}
	return Check{Name: "transcription.grpc", Pass: true, Message: fmt.Sprintf("ready at %s", cfg.Endpoint)}
}

// checkDeadDrop verifies the dead-drop directory exists or can be created and
// accepts writes.
func checkDeadDrop(cfg config.Config) Check {
	path, err := config.DeadDropPath(cfg)
	if err != nil {
		return Check{Name: "output.dead_drop", Pass: false, Message: err.Error()}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "output.dead_drop", Pass: false, Message: err.Error()}
	}
	scratch, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "output.dead_drop", Pass: false, Message: fmt.Sprintf("directory not writable: %v", err)}
	}
	_ = scratch.Close()
	_ = os.Remove(scratch.Name())
	return Check{Name: "output.dead_drop", Pass: true, Message: path}
}

func checkNATS(cfg config.NATSConfig) Check {
	sink, err := output.ConnectNATS(cfg.URL, cfg.Subject, checkTimeout, nil)
	if err != nil {
		return Check{Name: "output.nats", Pass: false, Message: err.Error()}
	}
	sink.Close()
	return Check{Name: "output.nats", Pass: true, Message: fmt.Sprintf("connected to %s", cfg.URL)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
