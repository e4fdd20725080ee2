// Package metrics exposes Prometheus counters and gauges for a
// long-running Revery process (the relay bridge, or a host that stays
// up for many sessions). The core packages (pake, keyschedule,
// session, wire) never import this package; only orchestrator does:
// orchestrator.Options accepts an optional *Recorder, and every method
// on a nil *Recorder is a no-op, so nothing in the protocol engine
// requires Prometheus to be wired in.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder wraps the Prometheus collectors a Revery session reports
// against. A nil *Recorder is valid and every method is a no-op,
// matching the teacher's SimpleMetrics/Metrics split but collapsed
// into a single nil-safe type since the orchestrator has exactly one
// optional observability consumer, not two.
type Recorder struct {
	handshakeSuccess   prometheus.Counter
	handshakeFailure   prometheus.Counter
	framesSent         prometheus.Counter
	framesReceived     prometheus.Counter
	macFailures        prometheus.Counter
	consecutiveFailures prometheus.Gauge
	sessionDuration    prometheus.Histogram
	activeSessions     prometheus.Gauge
}

// New builds a Recorder and registers its collectors under namespace.
// Pass "" to use the default "revery" namespace.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "revery"
	}

	r := &Recorder{
		handshakeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_success_total",
			Help:      "Total number of sessions that completed mutual verification.",
		}),
		handshakeFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_failure_total",
			Help:      "Total number of sessions that failed PAKE or mutual verification.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total number of wire frames sent.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of wire frames received.",
		}),
		macFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mac_verification_failures_total",
			Help:      "Total number of chat frames dropped for MAC mismatch.",
		}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplex_consecutive_failures",
			Help:      "Current value of the duplex loop's consecutive-failure counter.",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of a session from the start of the duplex loop to its exit.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently in the duplex messaging phase.",
		}),
	}

	prometheus.MustRegister(
		r.handshakeSuccess,
		r.handshakeFailure,
		r.framesSent,
		r.framesReceived,
		r.macFailures,
		r.consecutiveFailures,
		r.sessionDuration,
		r.activeSessions,
	)

	return r
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.Handler()
}

func (r *Recorder) HandshakeSucceeded() {
	if r == nil {
		return
	}
	r.handshakeSuccess.Inc()
	r.activeSessions.Inc()
}

func (r *Recorder) HandshakeFailed() {
	if r == nil {
		return
	}
	r.handshakeFailure.Inc()
}

func (r *Recorder) FrameSent() {
	if r == nil {
		return
	}
	r.framesSent.Inc()
}

func (r *Recorder) FrameReceived() {
	if r == nil {
		return
	}
	r.framesReceived.Inc()
}

func (r *Recorder) MacVerificationFailed() {
	if r == nil {
		return
	}
	r.macFailures.Inc()
}

func (r *Recorder) SetConsecutiveFailures(n int) {
	if r == nil {
		return
	}
	r.consecutiveFailures.Set(float64(n))
}

func (r *Recorder) SessionEnded(started time.Time) {
	if r == nil {
		return
	}
	r.activeSessions.Dec()
	r.sessionDuration.Observe(time.Since(started).Seconds())
}
