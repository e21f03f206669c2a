package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/uplink/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueError
)

func (k cueKind) String() string {
	switch k {
	case cueStart:
		return "start"
	case cueStop:
		return "stop"
	case cueComplete:
		return "complete"
	case cueError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	cueSampleRate = 16000
	cueVolume     = 0.18
	cueGap        = 22 * time.Millisecond
	cueTimeout    = 4 * time.Second
)

type tone struct {
	hz       float64
	duration time.Duration
}

var cuePCM = map[cueKind][]int16{
	cueStart:    synthesizeCue(tone{880, 70 * time.Millisecond}, tone{1175, 70 * time.Millisecond}),
	cueStop:     synthesizeCue(tone{620, 120 * time.Millisecond}),
	cueComplete: synthesizeCue(tone{740, 65 * time.Millisecond}, tone{988, 90 * time.Millisecond}),
	cueError:    synthesizeCue(tone{480, 75 * time.Millisecond}, tone{360, 90 * time.Millisecond}),
}

// emitCue plays the configured file for kind, or the built-in tone when no
// file is set or the file player fails.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cueTimeout)
	defer cancel()

	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	switch kind {
	case cueStart:
		return expandUserPath(cfg.SoundStartFile)
	case cueStop:
		return expandUserPath(cfg.SoundStopFile)
	case cueComplete:
		return expandUserPath(cfg.SoundCompleteFile)
	case cueError:
		return expandUserPath(cfg.SoundErrorFile)
	default:
		return ""
	}
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("uplink"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("uplink cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// synthesizeCue concatenates tones separated by short silences.
func synthesizeCue(tones ...tone) []int16 {
	gap := make([]int16, samplesForDuration(cueGap))
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(t, cueVolume)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack/release ramp of at most 5ms.
func synthesizeTone(t tone, volume float64) []int16 {
	n := samplesForDuration(t.duration)
	if n <= 0 || t.hz <= 0 || volume <= 0 {
		return nil
	}

	ramp := max(min(n/10, cueSampleRate/200), 1)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
