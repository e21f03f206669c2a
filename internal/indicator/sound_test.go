package indicator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/uplink/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueComplete, cueError} {
		require.NotEmpty(t, cuePCM[kind], kind.String())
	}
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(tone{hz: 440, duration: 100 * time.Millisecond}, 0.2)
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(tone{hz: 0, duration: 100 * time.Millisecond}, 0.2))
	require.Empty(t, synthesizeTone(tone{hz: 440, duration: 0}, 0.2))
	require.Empty(t, synthesizeTone(tone{hz: 440, duration: 100 * time.Millisecond}, 0))
}

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	one := synthesizeCue(tone{440, 50 * time.Millisecond})
	two := synthesizeCue(tone{440, 50 * time.Millisecond}, tone{440, 50 * time.Millisecond})
	require.Len(t, two, 2*len(one)+samplesForDuration(cueGap))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Equal(t, 400, samplesForDuration(25*time.Millisecond))
}

func TestCuePathExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.IndicatorConfig{SoundErrorFile: "~/cues/error.wav", SoundStartFile: " /abs/start.wav "}
	require.Equal(t, filepath.Join(home, "cues", "error.wav"), cuePath(cueError, cfg))
	require.Equal(t, "/abs/start.wav", cuePath(cueStart, cfg))
	require.Empty(t, cuePath(cueStop, cfg))
	require.Equal(t, home, expandUserPath("~"))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueStart, config.IndicatorConfig{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlayCueFileMissing(t *testing.T) {
	err := playCueFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}
