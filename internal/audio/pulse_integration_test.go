//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListDevicesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
}

func TestRecorderCapturesFromDefaultSourceIntegration(t *testing.T) {
	recorder := NewRecorder(PulseBackend{})
	require.NoError(t, recorder.Start(context.Background()))
	time.Sleep(300 * time.Millisecond)

	capture := recorder.Stop()
	require.False(t, recorder.Recording())
	require.Positive(t, capture.SampleRate)
	require.NotEmpty(t, capture.Samples)
}
