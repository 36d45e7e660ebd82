package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus collectors for the service.
type Metrics struct {
	registry         *prometheus.Registry
	requestCount     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errorCount       *prometheus.CounterVec
	checkinDuration  *prometheus.HistogramVec
	queueConflicts   prometheus.Counter
	boardSubscribers prometheus.Gauge
}

// NewMetrics registers collectors on registry. A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkin_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		}, []string{"path", "method", "code"}),
		checkinDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "checkin_duration_seconds",
			Help: "Duration of check-in attempts in seconds",
			Buckets: []float64{
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		}, []string{"outcome"}),
		queueConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkin_queue_number_conflicts_total",
			Help: "Check-in commits that lost a queue number race",
		}),
		boardSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "checkin_kiosk_subscribers",
			Help: "Connected kiosk board websocket clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordCheckin observes one check-in attempt labelled by its outcome.
func (m *Metrics) RecordCheckin(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkinDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordQueueConflict counts a lost queue number race.
func (m *Metrics) RecordQueueConflict(string) {
	if m == nil {
		return
	}
	m.queueConflicts.Inc()
}

// SetBoardSubscribers reports the number of connected kiosk clients.
func (m *Metrics) SetBoardSubscribers(n int) {
	if m == nil {
		return
	}
	m.boardSubscribers.Set(float64(n))
}
