// Package metrics exposes Prometheus instruments for the analysis pipeline
// and the position manager. A nil *Recorder records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder struct {
	analysisLatency *prometheus.HistogramVec
	engineFailures  *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	positionsOpened *prometheus.CounterVec
	positionsClosed *prometheus.CounterVec
	notifyErrors    *prometheus.CounterVec
}

// New registers the instruments on reg. Pass prometheus.DefaultRegisterer
// to serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analysisLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfuse_analysis_duration_seconds",
				Help:    "Duration of one instrument analysis in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		engineFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_engine_failures_total",
				Help: "Engines or scorers that panicked or could not load inputs",
			},
			[]string{"engine"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_decisions_total",
				Help: "Fused decisions by action",
			},
			[]string{"action"},
		),
		positionsOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_positions_opened_total",
				Help: "Positions opened by trading style",
			},
			[]string{"style"},
		),
		positionsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_positions_closed_total",
				Help: "Positions closed by reason",
			},
			[]string{"reason"},
		),
		notifyErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_notify_errors_total",
				Help: "Trade event deliveries that failed",
			},
			[]string{"channel"},
		),
	}
}

func (r *Recorder) ObserveAnalysis(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.analysisLatency.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) EngineFailed(engine string) {
	if r == nil {
		return
	}
	r.engineFailures.WithLabelValues(engine).Inc()
}

func (r *Recorder) Decision(action string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(action).Inc()
}

func (r *Recorder) PositionOpened(style string) {
	if r == nil {
		return
	}
	r.positionsOpened.WithLabelValues(style).Inc()
}

func (r *Recorder) PositionClosed(reason string) {
	if r == nil {
		return
	}
	r.positionsClosed.WithLabelValues(reason).Inc()
}

func (r *Recorder) NotifyFailed(channel string) {
	if r == nil {
		return
	}
	r.notifyErrors.WithLabelValues(channel).Inc()
}
