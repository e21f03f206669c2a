package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/uplink/internal/ipc"
)

// Handle serves control-socket commands against the running orchestrator.
func (o *Orchestrator) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		snap := o.store.Read()
		return ipc.Response{OK: true, State: string(snap.Phase), Cycle: snap.Cycle, Message: "status"}
	case ipc.CommandReply:
		snap := o.store.Read()
		return ipc.Response{OK: true, State: string(snap.Phase), Cycle: snap.Cycle, Text: snap.Text}
	case ipc.CommandStart:
		return o.handleStart(ctx)
	case ipc.CommandStop:
		return o.handleStop(ctx)
	default:
		return ipc.Response{OK: false, State: string(o.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (o *Orchestrator) handleStart(ctx context.Context) ipc.Response {
	if err := o.Press(ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			return ipc.Response{OK: false, State: string(o.State()), Error: "busy"}
		}
		return ipc.Response{OK: false, State: string(o.State()), Error: err.Error()}
	}
	snap := o.store.Read()
	return ipc.Response{OK: true, State: string(snap.Phase), Cycle: snap.Cycle, Message: "recording"}
}

// handleStop returns OK with the committed text even when the cycle ended on
// a fallback message; the error is reported alongside.
func (o *Orchestrator) handleStop(ctx context.Context) ipc.Response {
	result, err := o.Release(ctx)
	if errors.Is(err, ErrNotRecording) {
		return ipc.Response{OK: false, State: string(o.State()), Error: "not recording"}
	}
	resp := ipc.Response{OK: true, State: string(o.State()), Cycle: result.Cycle, Text: result.Reply, Message: result.Outcome}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
