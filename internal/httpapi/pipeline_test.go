package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/uplink/internal/audio"
	"github.com/rbright/uplink/internal/session"
	"github.com/stretchr/testify/require"
)

// micBackend delivers one block as soon as a stream opens. Open is slow
// enough that overlapping presses contend on it.
type micBackend struct {
	block  []float32
	opens  atomic.Int32
	closes atomic.Int32
}

func (b *micBackend) Open(_ context.Context, onSamples func([]float32)) (audio.Stream, error) {
	b.opens.Add(1)
	time.Sleep(20 * time.Millisecond)
	onSamples(b.block)
	return micStream{b}, nil
}

type micStream struct{ b *micBackend }

func (micStream) SampleRate() int { return 16000 }
func (micStream) Device() string  { return "test-mic" }

func (s micStream) Close() error {
	s.b.closes.Add(1)
	return nil
}

type countingTranscriber struct{ samples atomic.Int64 }

func (c *countingTranscriber) Transcribe(_ context.Context, capture audio.Capture) (string, error) {
	c.samples.Store(int64(len(capture.Samples)))
	return "where's the ripperdoc", nil
}

type fixedResponder string

func (r fixedResponder) Respond(context.Context, string, string) (string, error) {
	return string(r), nil
}

func TestConcurrentStartsOpenOneStream(t *testing.T) {
	backend := &micBackend{block: make([]float32, 2000)}
	stt := &countingTranscriber{}
	orch := session.New(session.Options{
		Recorder:    audio.NewRecorder(backend),
		Transcriber: stt,
		Responder:   fixedResponder("Two blocks east."),
	})
	t.Cleanup(func() { orch.Close(context.Background()) })
	s := New(orch, Options{})

	statuses := make([]int, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.App().Test(httptest.NewRequest(http.MethodPost, "/start", nil))
			if err != nil {
				errs[i] = err
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	sort.Ints(statuses)
	require.Equal(t, []int{http.StatusOK, http.StatusConflict}, statuses)
	require.EqualValues(t, 1, backend.opens.Load())

	status, body := do(t, s, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Two blocks east.", body)
	require.EqualValues(t, 1, backend.closes.Load())
	require.EqualValues(t, 2000, stt.samples.Load())

	status, body = do(t, s, http.MethodPost, "/stop")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, BodyNotRecording, body)
}
