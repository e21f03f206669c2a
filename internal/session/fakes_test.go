package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/fsm"
	"github.com/rbright/uplink/internal/state"
)

type fakeRecorder struct {
	samples    int
	startErr   error
	startPanic bool
	starts     atomic.Int32
	stops      atomic.Int32
}

func (r *fakeRecorder) Start(context.Context) error {
	r.starts.Add(1)
	if r.startPanic {
		panic("pulse client vanished")
	}
	return r.startErr
}

func (r *fakeRecorder) Stop() audio.Capture {
	r.stops.Add(1)
	return audio.Capture{Samples: make([]float32, r.samples), SampleRate: 16000, Channels: 1}
}

type fakeTranscriber struct {
	text  string
	err   error
	panic bool
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ audio.Capture) (string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.panic {
		panic("decoder exploded")
	}
	return f.text, f.err
}

type fakeResponder struct {
	reply string
	err   error

	mu     sync.Mutex
	system string
	user   string
	calls  atomic.Int32
}

func (f *fakeResponder) Respond(_ context.Context, system string, user string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.system, f.user = system, user
	f.mu.Unlock()
	return f.reply, f.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []state.Snapshot
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, snap state.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return p.err
}

func (p *recordingPublisher) phases() []fsm.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]fsm.State, 0, len(p.snaps))
	for _, s := range p.snaps {
		out = append(out, s.Phase)
	}
	return out
}

func (p *recordingPublisher) seqs() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint64, 0, len(p.snaps))
	for _, s := range p.snaps {
		out = append(out, s.Seq)
	}
	return out
}

func (p *recordingPublisher) last() state.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return state.Snapshot{}
	}
	return p.snaps[len(p.snaps)-1]
}

type fakeIndicator struct {
	starts    atomic.Int32
	stops     atomic.Int32
	completes atomic.Int32
	errors    atomic.Int32
}

func (f *fakeIndicator) CueStart(context.Context)    { f.starts.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)     { f.stops.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context) { f.completes.Add(1) }
func (f *fakeIndicator) CueError(context.Context)    { f.errors.Add(1) }

var errBoom = errors.New("boom")

func waitForPhase(t *testing.T, o *Orchestrator, want fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s (current %s)", want, o.State())
}
