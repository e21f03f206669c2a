package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning means another daemon owns the socket.
var ErrAlreadyRunning = errors.New("uplink daemon already running")

// RunningError reports the daemon found on the socket. It matches
// ErrAlreadyRunning.
type RunningError struct {
	Path     string
	Snapshot Snapshot
}

func (e *RunningError) Error() string {
	msg := fmt.Sprintf("%s on %s (phase %s", ErrAlreadyRunning, e.Path, e.Snapshot.Phase)
	if e.Snapshot.Cycle != "" {
		msg += ", cycle " + e.Snapshot.Cycle
	}
	return msg + ")"
}

func (e *RunningError) Is(target error) bool { return target == ErrAlreadyRunning }

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/uplink.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "uplink.sock"), nil
}

// Acquire listens on path for a new daemon. A socket file whose owner no
// longer answers is unlinked and rescue, when set, runs before the retry. A
// live owner yields a *RunningError carrying its snapshot.
func Acquire(
	ctx context.Context,
	path string,
	checkTimeout time.Duration,
	retries int,
	rescue func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; attempt <= retries; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, unix.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		snap, alive, checkErr := Inspect(ctx, path, checkTimeout)
		if checkErr != nil {
			return nil, fmt.Errorf("check existing socket %s: %w", path, checkErr)
		}
		if alive {
			return nil, &RunningError{Path: path, Snapshot: snap}
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}
		if rescue != nil {
			_ = rescue(ctx)
		}

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("socket %s still in use after %d retries", path, retries)
}
