package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback engine.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	stallsTotal           prometheus.Counter
	readyTransitionsTotal prometheus.Counter
	driftCorrectionsTotal prometheus.Counter
	waitingElements       prometheus.Gauge
	positionSeconds       prometheus.Gauge
	bufferPositionSeconds prometheus.Gauge
}

// New creates and registers Prometheus metrics for the playback engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	stallsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_stalls_total",
		Help: "Total number of element stall transitions",
	})
	readyTransitionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_ready_transitions_total",
		Help: "Total number of transitions from waiting to fully ready",
	})
	driftCorrectionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_drift_corrections_total",
		Help: "Total number of slave position corrections",
	})
	waitingElements := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_waiting_elements",
		Help: "Number of elements currently stalled",
	})
	positionSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_position_seconds",
		Help: "Current playback position in seconds",
	})
	bufferPositionSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_buffer_position_seconds",
		Help: "Aggregate buffered frontier across all elements in seconds",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		stallsTotal,
		readyTransitionsTotal,
		driftCorrectionsTotal,
		waitingElements,
		positionSeconds,
		bufferPositionSeconds,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		stallsTotal:           stallsTotal,
		readyTransitionsTotal: readyTransitionsTotal,
		driftCorrectionsTotal: driftCorrectionsTotal,
		waitingElements:       waitingElements,
		positionSeconds:       positionSeconds,
		bufferPositionSeconds: bufferPositionSeconds,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncStalls increments the stall transitions counter.
func (m *Metrics) IncStalls() {
	m.stallsTotal.Inc()
}

// IncReadyTransitions increments the waiting-to-ready transitions counter.
func (m *Metrics) IncReadyTransitions() {
	m.readyTransitionsTotal.Inc()
}

// IncDriftCorrections increments the drift corrections counter.
func (m *Metrics) IncDriftCorrections() {
	m.driftCorrectionsTotal.Inc()
}

// SetWaitingElements sets the stalled elements gauge.
func (m *Metrics) SetWaitingElements(n int) {
	m.waitingElements.Set(float64(n))
}

// SetPosition sets the playback position gauge.
func (m *Metrics) SetPosition(t float64) {
	m.positionSeconds.Set(t)
}

// SetBufferPosition sets the aggregate buffer position gauge.
func (m *Metrics) SetBufferPosition(t float64) {
	m.bufferPositionSeconds.Set(t)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. playback position).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
