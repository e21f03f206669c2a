// Package hostapi is the in-process API behind the host-plugin exports. It
// deals only in Go strings and booleans; C marshaling lives in cmd/uplink-plugin.
package hostapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rbright/uplink/internal/llm"
	"github.com/rbright/uplink/internal/session"
	"github.com/rbright/uplink/internal/state"
)

// Engine is the orchestrator surface the bridge drives.
type Engine interface {
	Store() *state.Store
	Press(context.Context) error
	ReleaseAsync(context.Context) (<-chan session.Result, error)
	LastTranscript() string
}

// Options configures a Bridge.
type Options struct {
	Engine    Engine
	Responder session.Responder
	Persona   string
	// Fallback is cached for an entity whose reply request failed.
	Fallback string
	Logger   *slog.Logger
}

type entityReply struct {
	transcript string
	text       string
	pending    bool
}

// Bridge answers host queries without ever blocking on the network. Entity
// replies are generated in the background and cached per entity name until
// the next transcript arrives.
type Bridge struct {
	engine    Engine
	responder session.Responder
	persona   string
	fallback  string
	logger    *slog.Logger

	pool     *workerpool.WorkerPool
	releases sync.WaitGroup

	mu       sync.Mutex
	entities map[string]*entityReply
	closed   bool
}

// New builds a bridge over opts.Engine.
func New(opts Options) *Bridge {
	return &Bridge{
		engine:    opts.Engine,
		responder: opts.Responder,
		persona:   opts.Persona,
		fallback:  opts.Fallback,
		logger:    opts.Logger,
		pool:      workerpool.New(1),
		entities:  make(map[string]*entityReply),
	}
}

// ReplyText returns the current shared reply or status line.
func (b *Bridge) ReplyText() string {
	return b.engine.Store().Text()
}

// PhaseTag returns the upper-case phase name, e.g. "RECORDING".
func (b *Bridge) PhaseTag() string {
	return b.engine.Store().Phase().Tag()
}

// SetRecording presses (true) or releases (false) the virtual trigger. A
// release returns once the capture stream is closed and the phase has left
// recording; transcription and the reply finish in the background. It
// reports whether the request changed anything.
func (b *Bridge) SetRecording(ctx context.Context, on bool) bool {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return false
	}

	if on {
		err := b.engine.Press(ctx)
		if err != nil && !errors.Is(err, session.ErrBusy) {
			b.logError("host press failed", err)
		}
		return err == nil
	}

	done, err := b.engine.ReleaseAsync(context.WithoutCancel(ctx))
	if err != nil {
		if !errors.Is(err, session.ErrNotRecording) {
			b.logError("host release failed", err)
		}
		return false
	}
	b.releases.Add(1)
	go func() {
		defer b.releases.Done()
		if result := <-done; result.Err != nil {
			b.logError("host cycle ended with error", result.Err, "cycle", result.Cycle)
		}
	}()
	return true
}

// EntityResponse returns the cached reply for entity to the latest
// transcript. On a miss it queues a request and returns "" until the reply
// is ready.
func (b *Bridge) EntityResponse(ctx context.Context, entity string) string {
	key := strings.ToLower(strings.TrimSpace(entity))
	transcript := b.engine.LastTranscript()
	if key == "" || transcript == "" || b.responder == nil {
		return ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ""
	}
	if cached, ok := b.entities[key]; ok && cached.transcript == transcript {
		if cached.pending {
			return ""
		}
		return cached.text
	}

	b.entities[key] = &entityReply{transcript: transcript, pending: true}
	system := llm.EntityPrompt(b.persona, strings.TrimSpace(entity))
	ctx = context.WithoutCancel(ctx)
	b.pool.Submit(func() {
		text, err := b.responder.Respond(ctx, system, transcript)
		text = strings.TrimSpace(text)
		if err != nil {
			b.logError("entity response failed", err, "entity", key)
			text = b.fallback
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.entities[key]; ok && cur.transcript == transcript {
			cur.text = text
			cur.pending = false
		}
	})
	return ""
}

// Close stops accepting requests and waits for queued work.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.pool.StopWait()
	b.releases.Wait()
}

func (b *Bridge) logError(msg string, err error, args ...any) {
	if b.logger == nil {
		return
	}
	b.logger.Error(msg, append(args, "error", err.Error())...)
}
