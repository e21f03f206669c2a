package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNoDaemon means nothing is listening on the control socket.
var ErrNoDaemon = errors.New("no running uplink daemon")

// RemoteError is a request the daemon answered with ok=false.
type RemoteError struct {
	Command string
	Phase   string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon refused %s while %s", e.Command, e.Phase)
	}
	return e.Message
}

// Send writes req to the daemon at path and decodes its one-line answer.
// Dial failures that mean no daemon is listening wrap ErrNoDaemon.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, unix.ECONNREFUSED) {
			return Response{}, fmt.Errorf("%w: %w", ErrNoDaemon, err)
		}
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Call sends command and turns an ok=false answer into a *RemoteError. The
// response is returned either way so callers can still read the snapshot.
func Call(ctx context.Context, path string, command string, timeout time.Duration) (Response, error) {
	resp, err := Send(ctx, path, Request{Command: command}, timeout)
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, &RemoteError{Command: command, Phase: resp.Snapshot().Phase, Message: resp.Error}
	}
	return resp, nil
}

// Status returns the snapshot of the daemon listening on path.
func Status(ctx context.Context, path string, timeout time.Duration) (Snapshot, error) {
	resp, err := Call(ctx, path, CommandStatus, timeout)
	if err != nil {
		return Snapshot{}, err
	}
	return resp.Snapshot(), nil
}

// Inspect reports whether a daemon answers on path and, if so, its snapshot.
// A missing socket or refused connection is a definite "no"; any other
// failure is returned because the socket may still have an owner.
func Inspect(ctx context.Context, path string, timeout time.Duration) (Snapshot, bool, error) {
	resp, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return resp.Snapshot(), true, nil
	case errors.Is(err, ErrNoDaemon):
		return Snapshot{}, false, nil
	default:
		return Snapshot{}, false, fmt.Errorf("inspect socket: %w", err)
	}
}
