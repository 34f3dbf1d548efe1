package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/remoteui/pkg/delta"
)

// MetricsNamespace prefixes every host metric.
const MetricsNamespace = "remoteui"

// Metrics holds the Prometheus collectors of a Host and its Server.
//
// Metrics collected:
//   - remoteui_active_sessions: Gauge of connected viewers
//   - remoteui_ticks_total: Counter of render loop ticks
//   - remoteui_tick_duration_seconds: Histogram of tick duration
//   - remoteui_updates_sent_total: Counter of updates sent by kind
//   - remoteui_update_bytes: Histogram of encoded update size
//   - remoteui_suppressed_frames_total: Counter of passes that needed no repaint
//   - remoteui_forced_renders_total: Counter of blank-input replays
//   - remoteui_inputs_received_total: Counter of input snapshots processed
//   - remoteui_connection_errors_total: Counter of connection failures by type
type Metrics struct {
	activeSessions   prometheus.Gauge
	ticksTotal       prometheus.Counter
	tickDuration     prometheus.Histogram
	updatesSent      *prometheus.CounterVec
	updateBytes      prometheus.Histogram
	suppressedFrames prometheus.Counter
	forcedRenders    prometheus.Counter
	inputsReceived   prometheus.Counter
	connErrors       *prometheus.CounterVec
}

// NewMetrics registers the host collectors with reg. A nil reg uses a
// private registry, so the collectors work but are not exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of connected viewers",
		}),

		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "ticks_total",
			Help:      "Total number of render loop ticks",
		}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "tick_duration_seconds",
			Help:      "Render loop tick duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),

		updatesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "updates_sent_total",
			Help:      "Total number of updates sent to viewers",
		}, []string{"kind"}),

		updateBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "update_bytes",
			Help:      "Encoded update size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}),

		suppressedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "suppressed_frames_total",
			Help:      "Total number of passes whose frame was not sent",
		}),

		forcedRenders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "forced_renders_total",
			Help:      "Total number of passes replaying blank input",
		}),

		inputsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "inputs_received_total",
			Help:      "Total number of input snapshots processed",
		}),

		connErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "connection_errors_total",
			Help:      "Total connection failures by type",
		}, []string{"type"}),
	}
}

// The recording helpers accept a nil receiver so components can run
// without metrics.

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

func (m *Metrics) tick(d time.Duration) {
	if m != nil {
		m.ticksTotal.Inc()
		m.tickDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) updateSent(kind delta.UpdateKind, size int) {
	if m != nil {
		m.updatesSent.WithLabelValues(kind.String()).Inc()
		m.updateBytes.Observe(float64(size))
	}
}

func (m *Metrics) frameSuppressed() {
	if m != nil {
		m.suppressedFrames.Inc()
	}
}

func (m *Metrics) forcedRender() {
	if m != nil {
		m.forcedRenders.Inc()
	}
}

func (m *Metrics) inputReceived() {
	if m != nil {
		m.inputsReceived.Inc()
	}
}

func (m *Metrics) connError(kind string) {
	if m != nil {
		m.connErrors.WithLabelValues(kind).Inc()
	}
}
