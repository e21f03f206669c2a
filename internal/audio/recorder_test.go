package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	rate   int
	closed atomic.Int32
}

func (s *fakeStream) SampleRate() int { return s.rate }
func (s *fakeStream) Device() string  { return "fake-mic" }
func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeBackend struct {
	mu        sync.Mutex
	opens     atomic.Int32
	err       error
	streams   []*fakeStream
	onSamples func([]float32)
}

func (b *fakeBackend) Open(_ context.Context, onSamples func([]float32)) (Stream, error) {
	b.opens.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	stream := &fakeStream{rate: 48000}
	b.mu.Lock()
	b.streams = append(b.streams, stream)
	b.onSamples = onSamples
	b.mu.Unlock()
	return stream, nil
}

func (b *fakeBackend) deliver(block []float32) {
	b.mu.Lock()
	fn := b.onSamples
	b.mu.Unlock()
	fn(block)
}

func TestRecorderStartStopMovesSamples(t *testing.T) {
	backend := &fakeBackend{}
	recorder := NewRecorder(backend)

	require.NoError(t, recorder.Start(context.Background()))
	require.True(t, recorder.Recording())

	backend.deliver([]float32{0.1, 0.2})
	backend.deliver([]float32{0.3})

	capture := recorder.Stop()
	require.False(t, recorder.Recording())
	require.Equal(t, []float32{0.1, 0.2, 0.3}, capture.Samples)
	require.Equal(t, 48000, capture.SampleRate)
	require.Equal(t, 1, capture.Channels)
	require.Equal(t, "fake-mic", capture.Device)
	require.Equal(t, int32(1), backend.streams[0].closed.Load())

	second := recorder.Stop()
	require.Empty(t, second.Samples)
	require.Equal(t, int32(1), backend.streams[0].closed.Load())
}

func TestRecorderSecondStartKeepsSingleStream(t *testing.T) {
	backend := &fakeBackend{}
	recorder := NewRecorder(backend)

	require.NoError(t, recorder.Start(context.Background()))
	backend.deliver([]float32{1})

	err := recorder.Start(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRecording)
	require.Equal(t, int32(1), backend.opens.Load())
	require.True(t, recorder.Recording())

	backend.deliver([]float32{2})
	capture := recorder.Stop()
	require.Equal(t, []float32{1, 2}, capture.Samples)
}

func TestRecorderStartClearsPreviousBuffer(t *testing.T) {
	backend := &fakeBackend{}
	recorder := NewRecorder(backend)

	require.NoError(t, recorder.Start(context.Background()))
	backend.deliver([]float32{9, 9, 9})
	_ = recorder.Stop()

	require.NoError(t, recorder.Start(context.Background()))
	backend.deliver([]float32{1})
	capture := recorder.Stop()
	require.Equal(t, []float32{1}, capture.Samples)
}

func TestRecorderDropsBlocksAfterStop(t *testing.T) {
	backend := &fakeBackend{}
	recorder := NewRecorder(backend)

	require.NoError(t, recorder.Start(context.Background()))
	backend.deliver([]float32{1})
	capture := recorder.Stop()

	backend.deliver([]float32{2, 3})
	require.Equal(t, []float32{1}, capture.Samples)

	require.NoError(t, recorder.Start(context.Background()))
	next := recorder.Stop()
	require.Empty(t, next.Samples)
}

func TestRecorderStartFailureLeavesNoStream(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	recorder := NewRecorder(backend)

	err := recorder.Start(context.Background())
	require.Error(t, err)
	require.False(t, recorder.Recording())

	capture := recorder.Stop()
	require.Empty(t, capture.Samples)
	require.Zero(t, capture.SampleRate)
}

func TestRecorderNilBackend(t *testing.T) {
	recorder := NewRecorder(nil)
	require.ErrorIs(t, recorder.Start(context.Background()), ErrNoInputDevice)
}

// Blocks delivered concurrently with Stop land either in the capture or nowhere.
func TestRecorderBufferIntegrityUnderConcurrentDelivery(t *testing.T) {
	backend := &fakeBackend{}
	recorder := NewRecorder(backend)
	require.NoError(t, recorder.Start(context.Background()))

	const blocks = 2000
	var delivered sync.WaitGroup
	delivered.Add(1)
	go func() {
		defer delivered.Done()
		for i := 0; i < blocks; i++ {
			backend.deliver([]float32{1, 1})
		}
	}()
	time.Sleep(time.Millisecond)

	capture := recorder.Stop()
	delivered.Wait()

	require.Zero(t, len(capture.Samples)%2)
	require.LessOrEqual(t, len(capture.Samples), blocks*2)
	for _, s := range capture.Samples {
		require.Equal(t, float32(1), s)
	}
}

func TestCaptureDuration(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, Capture{Samples: make([]float32, 8000), SampleRate: 16000}.Duration())
	require.Zero(t, Capture{Samples: make([]float32, 10)}.Duration())
}
