// Package metrics exposes inventory engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"patrimonio-inventory-backend/internal/services/inventory"
)

const namespace = "patrimonio"

// Metrics implements inventory.Recorder.
type Metrics struct {
	scans          *prometheus.CounterVec
	sessionsOpened prometheus.Counter
	sessionsClosed prometheus.Counter
	openSessions   prometheus.Gauge
}

var _ inventory.Recorder = (*Metrics)(nil)

// New registers the inventory collectors on reg. Pass prometheus.DefaultRegisterer
// to serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scans recorded, by outcome.",
		}, []string{"outcome"}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Inventory sessions opened.",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Inventory sessions closed.",
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Inventory sessions currently open.",
		}),
	}
	reg.MustRegister(m.scans, m.sessionsOpened, m.sessionsClosed, m.openSessions)
	return m
}

func (m *Metrics) SessionOpened() {
	m.sessionsOpened.Inc()
	m.openSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	m.sessionsClosed.Inc()
	m.openSessions.Dec()
}

func (m *Metrics) ScanRecorded(outcome inventory.Outcome) {
	m.scans.WithLabelValues(string(outcome)).Inc()
}

// SetOpenSessions seeds the gauge after sessions are loaded from storage.
func (m *Metrics) SetOpenSessions(n int) {
	m.openSessions.Set(float64(n))
}
