// Package indicator plays the audible cues that mark cycle boundaries.
package indicator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rbright/uplink/internal/config"
)

// Cues plays one short sound per cycle event. Playback runs in the
// background so the orchestrator never waits on the audio server.
type Cues struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	play   func(context.Context, cueKind, config.IndicatorConfig) error

	soundMu sync.Mutex
	wg      sync.WaitGroup
}

// New builds a cue player from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Cues {
	return &Cues{cfg: cfg, logger: logger, play: emitCue}
}

// CueStart marks the press edge.
func (c *Cues) CueStart(ctx context.Context) { c.playCue(ctx, cueStart) }

// CueStop marks the release edge.
func (c *Cues) CueStop(ctx context.Context) { c.playCue(ctx, cueStop) }

// CueComplete marks a cycle that produced a reply.
func (c *Cues) CueComplete(ctx context.Context) { c.playCue(ctx, cueComplete) }

// CueError marks a cycle that ended on a fallback message.
func (c *Cues) CueError(ctx context.Context) { c.playCue(ctx, cueError) }

// Wait blocks until queued cues have finished.
func (c *Cues) Wait() { c.wg.Wait() }

// playCue serializes playback so overlapping cues never mix.
func (c *Cues) playCue(ctx context.Context, kind cueKind) {
	if !c.cfg.SoundEnable {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.soundMu.Lock()
		defer c.soundMu.Unlock()
		if err := c.play(ctx, kind, c.cfg); err != nil {
			c.log("indicator audio cue failed", kind, err)
		}
	}()
}

func (c *Cues) log(message string, kind cueKind, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Debug(message, "cue", kind.String(), "error", err.Error())
}
