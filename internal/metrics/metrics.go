package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohit83k/honeypot/internal/model"
)

const namespace = "honeypot"

// Metrics holds the honeypot's Prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	registry      *prometheus.Registry
	Active        prometheus.Gauge
	Sessions      *prometheus.CounterVec
	Credentials   prometheus.Counter
	BytesReceived prometheus.Counter
	Duration      prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Connections currently being handled.",
		}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by outcome.",
		}, []string{"outcome"}),
		Credentials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_attempts_total",
			Help:      "Username/password pairs captured.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from clients.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Session length from accept to close.",
			Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300},
		}),
	}
	m.registry.MustRegister(m.Active, m.Sessions, m.Credentials, m.BytesReceived, m.Duration)
	return m
}

// SessionStarted marks a connection as accepted.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.Active.Inc()
}

// SessionFinished accounts for a finalized record.
func (m *Metrics) SessionFinished(rec model.SessionRecord) {
	if m == nil {
		return
	}
	m.Active.Dec()
	m.Sessions.WithLabelValues(string(rec.Outcome)).Inc()
	m.Credentials.Add(float64(len(rec.CredentialsAttempted)))
	m.BytesReceived.Add(float64(rec.BytesReceived))
	m.Duration.Observe(rec.Duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
