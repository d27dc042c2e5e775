package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientMetrics covers outgoing backend requests and processing runs.
type ClientMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	retriesTotal    *prometheus.CounterVec

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "vision",
			Subsystem:   "api",
			Name:        "requests_total",
			Help:        "Total backend requests by endpoint and status code.",
			ConstLabels: serviceLabel,
		},
		[]string{"endpoint", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "vision",
			Subsystem:   "api",
			Name:        "request_duration_seconds",
			Help:        "Backend request duration in seconds.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 360},
			ConstLabels: serviceLabel,
		},
		[]string{"endpoint"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "vision",
			Subsystem:   "api",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight backend requests.",
			ConstLabels: serviceLabel,
		},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "vision",
			Subsystem:   "api",
			Name:        "retries_total",
			Help:        "Total retried backend requests by endpoint.",
			ConstLabels: serviceLabel,
		},
		[]string{"endpoint"},
	)
	stepsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "vision",
			Subsystem:   "processing",
			Name:        "steps_total",
			Help:        "Total finished processing steps by capability and status.",
			ConstLabels: serviceLabel,
		},
		[]string{"capability", "status"},
	)
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "vision",
			Subsystem:   "processing",
			Name:        "step_duration_seconds",
			Help:        "Processing step duration in seconds by capability.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
		[]string{"capability"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "vision",
			Subsystem:   "processing",
			Name:        "runs_total",
			Help:        "Total processing runs by outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "vision",
			Subsystem:   "processing",
			Name:        "run_duration_seconds",
			Help:        "Processing run duration in seconds.",
			Buckets:     []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retriesTotal,
		stepsTotal,
		stepDuration,
		runsTotal,
		runDuration,
	)

	return &ClientMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		retriesTotal:    retriesTotal,
		stepsTotal:      stepsTotal,
		stepDuration:    stepDuration,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry lets other collectors share the same /metrics endpoint.
func (m *ClientMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ClientMetrics) StartRequest() {
	m.requestInFlight.Inc()
}

// ObserveRequest records a finished request. Status 0 means no response.
func (m *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	m.requestInFlight.Dec()

	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestTotal.WithLabelValues(endpoint, label).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *ClientMetrics) RecordRetry(endpoint string) {
	m.retriesTotal.WithLabelValues(endpoint).Inc()
}

func (m *ClientMetrics) RecordStep(capability, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.stepsTotal.WithLabelValues(capability, status).Inc()
	m.stepDuration.WithLabelValues(capability).Observe(duration.Seconds())
}

func (m *ClientMetrics) RecordRun(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}
