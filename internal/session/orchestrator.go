// Package session runs the press/capture/transcribe/respond/publish cycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/fsm"
	"github.com/rbright/uplink/internal/hotkey"
	"github.com/rbright/uplink/internal/state"
)

// DefaultMinSamples is the smallest capture worth sending for transcription.
const DefaultMinSamples = 1000

// Recorder is the capture subset the orchestrator drives.
type Recorder interface {
	Start(context.Context) error
	Stop() audio.Capture
}

// Transcriber turns a capture into text.
type Transcriber interface {
	Transcribe(context.Context, audio.Capture) (string, error)
}

// Responder generates a reply for a user utterance under a system persona.
type Responder interface {
	Respond(ctx context.Context, system string, user string) (string, error)
}

// Publisher receives every store snapshot the orchestrator writes.
type Publisher interface {
	Publish(context.Context, state.Snapshot) error
}

// PublishFunc adapts a function to Publisher.
type PublishFunc func(context.Context, state.Snapshot) error

func (f PublishFunc) Publish(ctx context.Context, snap state.Snapshot) error {
	return f(ctx, snap)
}

// Indicator plays audible cues for cycle milestones.
type Indicator interface {
	CueStart(context.Context)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueError(context.Context)
}

// noopIndicator keeps the cycle flowing when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) CueStart(context.Context)    {}
func (noopIndicator) CueStop(context.Context)     {}
func (noopIndicator) CueComplete(context.Context) {}
func (noopIndicator) CueError(context.Context)    {}

// Options wires collaborators and policy into an Orchestrator.
type Options struct {
	Recorder    Recorder
	Transcriber Transcriber
	Responder   Responder
	Publisher   Publisher
	Indicator   Indicator
	Store       *state.Store
	Logger      *slog.Logger
	Metrics     *Metrics

	Messages     Messages
	Persona      string
	MinSamples   int
	ArtifactPath string
	AudioDump    bool
	Workers      int
}

// Result describes one finished cycle.
type Result struct {
	Cycle      string
	Outcome    string
	Transcript string
	Reply      string
	Samples    int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Orchestrator owns the cycle state machine. Press and Release may be called
// from any goroutine; at most one cycle is in flight.
type Orchestrator struct {
	recorder    Recorder
	transcriber Transcriber
	responder   Responder
	publisher   Publisher
	indicator   Indicator
	store       *state.Store
	logger      *slog.Logger
	metrics     *Metrics

	messages     Messages
	persona      string
	minSamples   int
	artifactPath string
	audioDump    bool

	pool        *workerpool.WorkerPool
	poolMu      sync.RWMutex
	poolStopped bool
	now         func() time.Time

	// pubMu orders sink deliveries; snapshots at or below lastPublished are stale.
	pubMu         sync.Mutex
	lastPublished uint64

	mu             sync.Mutex
	phase          fsm.State
	cycle          string
	cycleStarted   time.Time
	idleSince      time.Time
	lastTranscript string
	closed         bool
}

// New builds an orchestrator. Store defaults to a fresh store holding the
// standby message; Workers defaults to 1.
func New(opts Options) *Orchestrator {
	messages := opts.Messages.WithDefaults()
	store := opts.Store
	if store == nil {
		store = state.NewStore(messages.Standby)
	}
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	minSamples := opts.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	o := &Orchestrator{
		recorder:     opts.Recorder,
		transcriber:  opts.Transcriber,
		responder:    opts.Responder,
		publisher:    opts.Publisher,
		indicator:    indicator,
		store:        store,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		messages:     messages,
		persona:      opts.Persona,
		minSamples:   minSamples,
		artifactPath: strings.TrimSpace(opts.ArtifactPath),
		audioDump:    opts.AudioDump,
		pool:         workerpool.New(workers),
		now:          time.Now,
		phase:        fsm.StateIdle,
	}
	o.idleSince = o.now()
	return o
}

// Store exposes the shared phase/reply store.
func (o *Orchestrator) Store() *state.Store {
	return o.store
}

// State returns the current cycle phase.
func (o *Orchestrator) State() fsm.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// LastTranscript returns the most recent successful transcript.
func (o *Orchestrator) LastTranscript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastTranscript
}

// Press opens a capture. Any phase other than idle yields ErrBusy and the
// press is dropped.
func (o *Orchestrator) Press(ctx context.Context) error {
	snap, cycle, err := o.openCapture(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		o.metrics.dropped()
		o.logDebug("press dropped", "phase", string(snap.Phase))
		return err
	case cycle == "":
		return err
	case err != nil:
		o.logError("capture start failed", err, "cycle", cycle)
		o.metrics.cycle(OutcomeCaptureFailed)
		o.indicator.CueError(ctx)
		o.publish(ctx, snap)
		return err
	}

	o.logInfo("recording started", "cycle", cycle)
	o.indicator.CueStart(ctx)
	o.publish(ctx, snap)
	return nil
}

// openCapture takes the press edge and starts the recorder under o.mu. cycle
// is empty when the press was refused before a cycle began.
func (o *Orchestrator) openCapture(ctx context.Context) (snap state.Snapshot, cycle string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return state.Snapshot{}, "", ErrClosed
	}
	if o.phase != fsm.StateIdle {
		return state.Snapshot{Phase: o.phase}, "", ErrBusy
	}
	if err := o.transitionLocked(fsm.EventPress); err != nil {
		return state.Snapshot{}, "", err
	}

	o.cycle = uuid.NewString()
	o.cycleStarted = o.now()
	o.store.BeginCycle(o.cycle, fsm.StateRecording)

	if err := o.startRecorder(ctx); err != nil {
		_ = o.transitionLocked(fsm.EventAbort)
		o.idleSince = o.now()
		return o.store.Write(fsm.StateIdle, o.messages.Standby), o.cycle, err
	}
	return o.store.Write(fsm.StateRecording, o.messages.Recording), o.cycle, nil
}

// startRecorder converts a panicking capture backend into an error so o.mu
// is still released by the caller.
func (o *Orchestrator) startRecorder(ctx context.Context) (err error) {
	if o.recorder == nil {
		return fmt.Errorf("%w: no recorder configured", audio.ErrNoInputDevice)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: capture start: %v", ErrPanicked, r)
		}
	}()
	return o.recorder.Start(ctx)
}

// Release closes the capture and runs the rest of the cycle on the worker
// pool, returning once the final reply has been written and published.
func (o *Orchestrator) Release(ctx context.Context) (Result, error) {
	capture, result, err := o.closeCapture(ctx)
	if err != nil {
		return Result{}, err
	}
	o.runCycle(ctx, capture, &result)
	return result, result.Err
}

// ReleaseAsync closes the capture and returns once the stream is released.
// The rest of the cycle runs in the background; its Result is delivered on
// the returned channel.
func (o *Orchestrator) ReleaseAsync(ctx context.Context) (<-chan Result, error) {
	capture, result, err := o.closeCapture(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		o.runCycle(ctx, capture, &result)
		done <- result
	}()
	return done, nil
}

// closeCapture takes the release edge: the stream is closed and the store
// shows the processing line before it returns.
func (o *Orchestrator) closeCapture(ctx context.Context) (audio.Capture, Result, error) {
	capture, result, snap, err := o.stopRecorder()
	if err != nil {
		return audio.Capture{}, Result{}, err
	}

	o.logInfo("recording stopped", "cycle", result.Cycle, "samples", result.Samples, "duration", capture.Duration().String())
	o.indicator.CueStop(ctx)
	o.publish(ctx, snap)
	return capture, result, nil
}

func (o *Orchestrator) stopRecorder() (audio.Capture, Result, state.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != fsm.StateRecording {
		return audio.Capture{}, Result{}, state.Snapshot{}, fmt.Errorf("%w: phase %s", ErrNotRecording, o.phase)
	}
	capture := o.recorder.Stop()
	_ = o.transitionLocked(fsm.EventRelease)
	result := Result{Cycle: o.cycle, Samples: len(capture.Samples), StartedAt: o.cycleStarted}
	snap := o.store.Write(fsm.StateTranscribing, o.messages.Processing)
	return capture, result, snap, nil
}

// runCycle hands the capture to the worker pool and waits for the cycle to end.
func (o *Orchestrator) runCycle(ctx context.Context, capture audio.Capture, result *Result) {
	o.poolMu.RLock()
	defer o.poolMu.RUnlock()
	if o.poolStopped {
		o.finish(ctx, result, fsm.EventAbort, OutcomeAborted, o.messages.Standby, ErrClosed)
		return
	}

	// Downstream calls are not cancelled mid-cycle; transport timeouts bound them.
	work := context.WithoutCancel(ctx)
	o.pool.SubmitWait(func() {
		o.process(work, capture, result)
	})
}

// process runs transcription and response generation for one capture.
func (o *Orchestrator) process(ctx context.Context, capture audio.Capture, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logError("cycle panicked", fmt.Errorf("%v", r), "cycle", result.Cycle)
			o.finish(ctx, result, "", OutcomePanicked, o.messages.NoResponse, fmt.Errorf("%w: %v", ErrPanicked, r))
		}
	}()

	if len(capture.Samples) < o.minSamples {
		err := fmt.Errorf("%w: %d samples, need %d", ErrBufferTooShort, len(capture.Samples), o.minSamples)
		o.finish(ctx, result, fsm.EventAbort, OutcomeTooShort, o.messages.TooShort, err)
		return
	}

	o.writeArtifacts(capture, result.Cycle)

	transcript, err := o.transcribe(ctx, capture)
	if err != nil {
		o.finish(ctx, result, fsm.EventAbort, OutcomeTranscriptionFailed, o.messages.TranscriptionFailed, err)
		return
	}
	result.Transcript = transcript

	o.mu.Lock()
	o.lastTranscript = transcript
	_ = o.transitionLocked(fsm.EventTranscribed)
	snap := o.store.SetPhase(fsm.StateResponding)
	o.mu.Unlock()
	o.publish(ctx, snap)
	o.logInfo("transcribed", "cycle", result.Cycle, "chars", len(transcript))

	reply, err := o.respond(ctx, transcript)
	switch {
	case err != nil:
		o.finish(ctx, result, fsm.EventResponded, OutcomeNoResponse, o.messages.NoResponse, err)
	case reply == "":
		o.finish(ctx, result, fsm.EventResponded, OutcomeSilence, o.messages.Silence, nil)
	default:
		o.finish(ctx, result, fsm.EventResponded, OutcomeReplied, reply, nil)
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, capture audio.Capture) (string, error) {
	if o.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", ErrTranscription)
	}
	started := o.now()
	text, err := o.transcriber.Transcribe(ctx, capture)
	o.metrics.observeTranscribe(o.now().Sub(started))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscription)
	}
	return text, nil
}

func (o *Orchestrator) respond(ctx context.Context, transcript string) (string, error) {
	if o.responder == nil {
		return "", fmt.Errorf("%w: no responder configured", ErrResponseGeneration)
	}
	started := o.now()
	reply, err := o.responder.Respond(ctx, o.persona, transcript)
	o.metrics.observeRespond(o.now().Sub(started))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseGeneration, err)
	}
	return strings.TrimSpace(reply), nil
}

// finish takes the closing edge and commits (idle, text) in one critical
// section, so a press cannot slip in between. An empty event forces idle
// after a recovered panic, unless a newer cycle has already started.
func (o *Orchestrator) finish(ctx context.Context, result *Result, event fsm.Event, outcome string, text string, err error) {
	snap, current := o.commitIdle(result.Cycle, event, text)

	result.Outcome = outcome
	result.Reply = text
	result.Err = err
	result.FinishedAt = snap.UpdatedAt
	if !current {
		o.logInfo("late cycle result discarded", "cycle", result.Cycle, "outcome", outcome)
		return
	}

	o.metrics.cycle(outcome)
	o.publish(ctx, snap)

	if err != nil {
		o.logError("cycle failed", err, "cycle", result.Cycle, "outcome", outcome)
		o.indicator.CueError(ctx)
		return
	}
	o.logInfo("cycle complete", "cycle", result.Cycle, "outcome", outcome)
	o.indicator.CueComplete(ctx)
}

func (o *Orchestrator) commitIdle(cycle string, event fsm.Event, text string) (state.Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cycle != cycle {
		return state.Snapshot{UpdatedAt: o.now()}, false
	}
	if event == "" {
		if o.phase == fsm.StateIdle || o.phase == fsm.StateRecording {
			return state.Snapshot{UpdatedAt: o.now()}, false
		}
		o.phase = fsm.StateIdle
	} else if err := o.transitionLocked(event); err != nil {
		return state.Snapshot{UpdatedAt: o.now()}, false
	}
	o.idleSince = o.now()
	return o.store.Write(fsm.StateIdle, text), true
}

func (o *Orchestrator) writeArtifacts(capture audio.Capture, cycle string) {
	if o.artifactPath != "" {
		if err := audio.WriteWAVFile(o.artifactPath, capture); err != nil {
			o.logError("write audio artifact failed", err, "cycle", cycle)
		}
	}
	if !o.audioDump {
		return
	}
	path, err := audio.DebugDumpPath(o.now())
	if err == nil {
		err = audio.WriteWAVFile(path, capture)
	}
	if err != nil {
		o.logError("write debug audio failed", err, "cycle", cycle)
	}
}

// Run consumes hotkey edges until ctx ends. Presses stamped before the last
// cycle finished are dropped. A closed edge channel leaves the orchestrator
// serving other callers until ctx ends.
func (o *Orchestrator) Run(ctx context.Context, edges <-chan hotkey.Edge) error {
	for {
		select {
		case <-ctx.Done():
			o.Close(context.WithoutCancel(ctx))
			return nil
		case edge, ok := <-edges:
			if !ok {
				edges = nil
				continue
			}
			o.handleEdge(ctx, edge)
		}
	}
}

func (o *Orchestrator) handleEdge(ctx context.Context, edge hotkey.Edge) {
	switch edge.Kind {
	case hotkey.EdgePressed:
		o.mu.Lock()
		stale := edge.At.Before(o.idleSince)
		o.mu.Unlock()
		if stale {
			o.metrics.dropped()
			o.logDebug("stale press dropped", "at", edge.At)
			return
		}
		if err := o.Press(ctx); err != nil && !errors.Is(err, ErrBusy) {
			o.logError("press failed", err)
		}
	case hotkey.EdgeReleased:
		if _, err := o.Release(ctx); err != nil && !errors.Is(err, ErrNotRecording) {
			o.logDebug("cycle ended with error", "error", err.Error())
		}
	}
}

// Close aborts an open recording, releasing its stream, and drains the worker pool.
func (o *Orchestrator) Close(ctx context.Context) {
	snap, aborted, first := o.closeLocked()
	if !first {
		return
	}
	if aborted {
		o.metrics.cycle(OutcomeAborted)
		o.logInfo("recording aborted on shutdown")
		o.publish(ctx, snap)
	}

	o.poolMu.Lock()
	defer o.poolMu.Unlock()
	if !o.poolStopped {
		o.poolStopped = true
		o.pool.StopWait()
	}
}

func (o *Orchestrator) closeLocked() (snap state.Snapshot, aborted bool, first bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return state.Snapshot{}, false, false
	}
	o.closed = true
	if o.phase != fsm.StateRecording {
		return state.Snapshot{}, false, true
	}
	_ = o.recorder.Stop()
	_ = o.transitionLocked(fsm.EventAbort)
	o.idleSince = o.now()
	return o.store.Write(fsm.StateIdle, o.messages.Standby), true, true
}

// transitionLocked applies one FSM event; o.mu must be held.
func (o *Orchestrator) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(o.phase, event)
	if err != nil {
		o.logDebug("transition rejected", "phase", string(o.phase), "event", string(event))
		return err
	}
	o.phase = next
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, snap state.Snapshot) {
	if o.publisher == nil {
		return
	}
	o.pubMu.Lock()
	defer o.pubMu.Unlock()
	if snap.Seq <= o.lastPublished {
		o.logDebug("stale snapshot skipped", "seq", snap.Seq, "phase", string(snap.Phase))
		return
	}
	o.lastPublished = snap.Seq
	if err := o.publisher.Publish(context.WithoutCancel(ctx), snap); err != nil {
		o.logError("publish failed", err, "phase", string(snap.Phase))
	}
}

func (o *Orchestrator) logInfo(msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Info(msg, args...)
}

func (o *Orchestrator) logDebug(msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Debug(msg, args...)
}

func (o *Orchestrator) logError(msg string, err error, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Error(msg, append(args, "error", err.Error())...)
}
