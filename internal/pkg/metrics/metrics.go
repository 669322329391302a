package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/diag"
)

const namespace = "assembler"

// Metrics counts assembly outcomes. It is both an assembler listener and a
// warning sink.
type Metrics struct {
	applications *prometheus.CounterVec
	deployments  prometheus.Gauge
	duration     *prometheus.HistogramVec
	warnings     *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// New registers the collectors on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		applications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_total",
			Help:      "Application lifecycle transitions by event type.",
		}, []string{"event"}),
		deployments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deployments",
			Help:      "Beans currently deployed.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assembly_duration_seconds",
			Help:      "Duration of application assembly.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Soft assembly diagnostics by code.",
		}, []string{"code", "severity"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed application deployments by error code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) DeploymentEvent(_ context.Context, e assembler.Event) {
	m.applications.WithLabelValues(string(e.Type)).Inc()
	switch e.Type {
	case assembler.EventAppCreated:
		m.deployments.Add(float64(len(e.Deployments)))
		m.duration.WithLabelValues(string(e.Type)).Observe(e.Duration.Seconds())
	case assembler.EventAppDestroyed:
		m.deployments.Sub(float64(len(e.Deployments)))
	case assembler.EventAppFailed:
		m.failures.WithLabelValues(e.Code).Inc()
		m.duration.WithLabelValues(string(e.Type)).Observe(e.Duration.Seconds())
	}
}

// Sink counts warnings.
func (m *Metrics) Sink() diag.Sink {
	return func(w diag.Warning) {
		m.warnings.WithLabelValues(w.Code, w.Severity).Inc()
	}
}

var _ assembler.Listener = (*Metrics)(nil)
