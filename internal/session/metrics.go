package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcome labels.
const (
	OutcomeReplied             = "replied"
	OutcomeSilence             = "silence"
	OutcomeTooShort            = "too_short"
	OutcomeTranscriptionFailed = "transcription_failed"
	OutcomeNoResponse          = "no_response"
	OutcomePanicked            = "panicked"
	OutcomeCaptureFailed       = "capture_failed"
	OutcomeAborted             = "aborted"
)

// Metrics are the orchestrator's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	droppedPresses prometheus.Counter
	transcribe     prometheus.Histogram
	respond        prometheus.Histogram
}

// NewMetrics registers orchestrator collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	latencyBuckets := []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16}
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uplink",
			Name:      "cycles_total",
			Help:      "Completed capture cycles by outcome.",
		}, []string{"outcome"}),
		droppedPresses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uplink",
			Name:      "dropped_presses_total",
			Help:      "Press events ignored because a cycle was in flight.",
		}),
		transcribe: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uplink",
			Name:      "transcription_seconds",
			Help:      "Speech-to-text call latency.",
			Buckets:   latencyBuckets,
		}),
		respond: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uplink",
			Name:      "response_seconds",
			Help:      "Reply generation call latency.",
			Buckets:   latencyBuckets,
		}),
	}
}

func (m *Metrics) cycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.droppedPresses.Inc()
}

func (m *Metrics) observeTranscribe(d time.Duration) {
	if m == nil {
		return
	}
	m.transcribe.Observe(d.Seconds())
}

func (m *Metrics) observeRespond(d time.Duration) {
	if m == nil {
		return
	}
	m.respond.Observe(d.Seconds())
}
