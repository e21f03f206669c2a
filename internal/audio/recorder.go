package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNoInputDevice means no usable capture device could be resolved.
	ErrNoInputDevice = errors.New("no audio input device")
	// ErrStream means the capture stream could not be built or started.
	ErrStream = errors.New("audio stream failure")
	// ErrAlreadyRecording is returned when Start is called with a stream still open.
	ErrAlreadyRecording = errors.New("capture stream already open")
)

// Stream is an open hardware capture handle.
type Stream interface {
	SampleRate() int
	Device() string
	Close() error
}

// Backend opens capture streams. onSamples is called from the audio runtime's
// goroutine and must return quickly.
type Backend interface {
	Open(ctx context.Context, onSamples func([]float32)) (Stream, error)
}

// Capture is one finished recording. Channels is always 1.
type Capture struct {
	Samples    []float32
	SampleRate int
	Channels   int
	StartedAt  time.Time
	Device     string
}

// Duration returns the captured audio length.
func (c Capture) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Recorder owns at most one open stream and the buffer it fills.
type Recorder struct {
	backend Backend
	now     func() time.Time

	streamMu  sync.Mutex
	stream    Stream
	startedAt time.Time

	// mu guards the buffer; it is held only for append and swap.
	mu      sync.Mutex
	samples []float32
	active  bool
}

// NewRecorder builds a recorder over backend.
func NewRecorder(backend Backend) *Recorder {
	return &Recorder{backend: backend, now: time.Now}
}

// Start clears the buffer and opens a stream. Calling Start while a stream is
// open returns ErrAlreadyRecording and leaves the open stream untouched.
func (r *Recorder) Start(ctx context.Context) error {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()

	if r.stream != nil {
		return ErrAlreadyRecording
	}
	if r.backend == nil {
		return fmt.Errorf("%w: no capture backend configured", ErrNoInputDevice)
	}

	r.mu.Lock()
	r.samples = nil
	r.active = true
	r.mu.Unlock()

	stream, err := r.backend.Open(ctx, r.append)
	if err != nil {
		r.mu.Lock()
		r.active = false
		r.samples = nil
		r.mu.Unlock()
		return err
	}

	r.stream = stream
	r.startedAt = r.now()
	return nil
}

// Stop releases the stream and hands the accumulated samples to the caller.
// The recorder keeps no reference to the returned slice.
func (r *Recorder) Stop() Capture {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()

	capture := Capture{Channels: 1, StartedAt: r.startedAt}
	if r.stream != nil {
		capture.SampleRate = r.stream.SampleRate()
		capture.Device = r.stream.Device()
		_ = r.stream.Close()
		r.stream = nil
	}

	r.mu.Lock()
	capture.Samples = r.samples
	r.samples = nil
	r.active = false
	r.mu.Unlock()

	return capture
}

// Recording reports whether a stream handle is currently open.
func (r *Recorder) Recording() bool {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	return r.stream != nil
}

// append is the hardware callback. Blocks delivered after Stop are dropped.
func (r *Recorder) append(block []float32) {
	r.mu.Lock()
	if r.active {
		r.samples = append(r.samples, block...)
	}
	r.mu.Unlock()
}
