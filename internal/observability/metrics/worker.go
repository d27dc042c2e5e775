package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics registers job counters on a shared registry.
type WorkerMetrics struct {
	service string

	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobInFlight prometheus.Gauge
	queueLag    prometheus.Histogram
}

func NewWorkerMetrics(service string, registry *prometheus.Registry) *WorkerMetrics {
	serviceLabel := prometheus.Labels{"service": service}

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "vision",
			Subsystem:   "worker",
			Name:        "jobs_total",
			Help:        "Total processed jobs by status.",
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "vision",
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			Help:        "Job processing duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "vision",
			Subsystem:   "worker",
			Name:        "jobs_in_flight",
			Help:        "Number of in-flight jobs.",
			ConstLabels: serviceLabel,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "vision",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between job enqueue and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobInFlight, queueLag)

	return &WorkerMetrics{
		service:     service,
		jobsTotal:   jobsTotal,
		jobDuration: jobDuration,
		jobInFlight: jobInFlight,
		queueLag:    queueLag,
	}
}

func (m *WorkerMetrics) StartJob() {
	m.jobInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
