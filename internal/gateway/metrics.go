package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds the gateway's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	turns       *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
	ingestions  *prometheus.CounterVec
	summaries   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewMetrics registers the collectors. activeSessions, when non-nil, backs
// a gauge of session states held in memory.
func NewMetrics(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragchat",
			Name:      "turns_total",
			Help:      "Conversation turns by mode, backend and outcome.",
		}, []string{"mode", "backend", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragchat",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragchat",
			Name:      "ingestions_total",
			Help:      "Document ingestions by outcome.",
		}, []string{"outcome"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragchat",
			Name:      "summaries_total",
			Help:      "Spoken summaries by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragchat",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.turns, m.turnLatency, m.ingestions, m.summaries, m.rejections,
	)
	if activeSessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ragchat",
			Name:      "active_sessions",
			Help:      "Session states held in memory.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	return m
}

// ObserveTurn records one turn.
func (m *Metrics) ObserveTurn(mode, backend, outcome string, d time.Duration) {
	m.turns.WithLabelValues(mode, backend, outcome).Inc()
	m.turnLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveIngest records one document ingestion.
func (m *Metrics) ObserveIngest(outcome string) {
	m.ingestions.WithLabelValues(outcome).Inc()
}

// ObserveSummary records one summary request.
func (m *Metrics) ObserveSummary(outcome string) {
	m.summaries.WithLabelValues(outcome).Inc()
}

// ObserveRejection records a rate-limited request.
func (m *Metrics) ObserveRejection(kind string) {
	m.rejections.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
