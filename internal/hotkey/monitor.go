// Package hotkey samples a physical key and turns its held state into press/release edges.
package hotkey

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 10 * time.Millisecond

// releaseSamples is how many consecutive not-held samples confirm a release.
const releaseSamples = 2

// EdgeKind distinguishes press and release transitions.
type EdgeKind int

const (
	EdgePressed EdgeKind = iota + 1
	EdgeReleased
)

func (k EdgeKind) String() string {
	switch k {
	case EdgePressed:
		return "pressed"
	case EdgeReleased:
		return "released"
	default:
		return fmt.Sprintf("edge(%d)", int(k))
	}
}

// Edge is one observed transition of the trigger key.
type Edge struct {
	Kind EdgeKind
	At   time.Time
}

// KeySource reports whether the trigger key is currently held.
type KeySource interface {
	Pressed() (bool, error)
}

// Monitor polls a KeySource at a fixed interval and emits edges.
type Monitor struct {
	source   KeySource
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	edges    chan Edge
}

// NewMonitor builds a monitor. A non-positive interval selects DefaultInterval.
func NewMonitor(source KeySource, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		edges:    make(chan Edge, 16),
	}
}

// Edges returns the channel Run publishes to. It is closed when Run returns.
func (m *Monitor) Edges() <-chan Edge {
	return m.edges
}

// Run polls until ctx is cancelled or the source fails. A source failure is
// returned wrapped; it does not affect anything beyond this monitor.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.edges)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var d detector
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		held, err := m.source.Pressed()
		if err != nil {
			m.log().Error("hotkey poll failed", "error", err.Error())
			return fmt.Errorf("poll hotkey: %w", err)
		}

		kind, ok := d.observe(held)
		if !ok {
			continue
		}

		edge := Edge{Kind: kind, At: m.now()}
		m.log().Debug("hotkey edge", "edge", kind.String())
		select {
		case m.edges <- edge:
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return m.logger
}

// detector tracks the last stable key state. Presses are reported on the
// first held sample; releases need releaseSamples consecutive idle samples.
type detector struct {
	held bool
	idle int
}

func (d *detector) observe(pressed bool) (EdgeKind, bool) {
	switch {
	case pressed && !d.held:
		d.held = true
		d.idle = 0
		return EdgePressed, true
	case pressed:
		d.idle = 0
	case d.held:
		d.idle++
		if d.idle >= releaseSamples {
			d.held = false
			d.idle = 0
			return EdgeReleased, true
		}
	}
	return 0, false
}
