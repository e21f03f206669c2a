// Package ipc carries JSON-line control requests over the daemon's unix socket.
package ipc

// Commands understood by the daemon.
const (
	CommandStatus = "status"
	CommandReply  = "reply"
	CommandStart  = "start"
	CommandStop   = "stop"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Cycle   string `json:"cycle,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Snapshot is the daemon's published state as carried by a response.
type Snapshot struct {
	Phase string
	Cycle string
	Text  string
}

// Snapshot extracts the daemon state from r. Daemons that omit the phase
// are idle.
func (r Response) Snapshot() Snapshot {
	phase := r.State
	if phase == "" {
		phase = "idle"
	}
	return Snapshot{Phase: phase, Cycle: r.Cycle, Text: r.Text}
}
