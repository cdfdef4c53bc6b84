package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// latency buckets in milliseconds
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Manager manages all Prometheus metrics for the studio engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Booking
	bookingTransitions *prometheus.CounterVec
	bookingSubmissions *prometheus.CounterVec
	submissionLatency  prometheus.Histogram

	// Sessions
	activeSessions   prometheus.Gauge
	sessionsPurged   prometheus.Counter
	scrollLocksHeld  prometheus.Gauge
	websocketClients prometheus.Gauge

	// Contact
	consultations *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "studio",
		subsystem:        "engine",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.bookingTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "booking_transitions_total",
			Help:      "Booking wizard state transitions",
		},
		[]string{"from", "to"},
	)

	m.bookingSubmissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "booking_submissions_total",
			Help:      "Completed booking submissions by result",
		},
		[]string{"result"},
	)

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "booking_submission_duration_milliseconds",
		Help:      "Time spent in the booking submitter in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Visitor sessions created and not yet deleted or purged",
	})

	m.sessionsPurged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_purged_total",
		Help:      "Expired visitor sessions removed by the cleaner",
	})

	m.scrollLocksHeld = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scroll_locks_held",
		Help:      "Detail views currently holding the page scroll lock",
	})

	m.websocketClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "websocket_clients",
		Help:      "Connected live update subscribers",
	})

	m.consultations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "consultations_total",
			Help:      "Consultation requests received by type",
		},
		[]string{"type"},
	)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordBookingTransition counts a wizard state change.
func RecordBookingTransition(from, to string) {
	globalManager.bookingTransitions.WithLabelValues(from, to).Inc()
}

// RecordBookingSubmission counts a finished submission and its latency.
func RecordBookingSubmission(result string, latencyMs float64) {
	globalManager.bookingSubmissions.WithLabelValues(result).Inc()
	globalManager.submissionLatency.Observe(latencyMs)
}

// IncActiveSessions increments the active sessions gauge.
func IncActiveSessions() {
	globalManager.activeSessions.Inc()
}

// DecActiveSessions decrements the active sessions gauge.
func DecActiveSessions() {
	globalManager.activeSessions.Dec()
}

// RecordSessionsPurged adds n purged sessions.
func RecordSessionsPurged(n int) {
	globalManager.sessionsPurged.Add(float64(n))
	globalManager.activeSessions.Sub(float64(n))
}

// UpdateScrollLocksHeld sets the held scroll locks gauge.
func UpdateScrollLocksHeld(n int64) {
	globalManager.scrollLocksHeld.Set(float64(n))
}

// UpdateWebsocketClients sets the connected subscribers gauge.
func UpdateWebsocketClients(n int) {
	globalManager.websocketClients.Set(float64(n))
}

// RecordConsultation counts a consultation request.
func RecordConsultation(consultationType string) {
	globalManager.consultations.WithLabelValues(consultationType).Inc()
}

// GetRegistry returns the custom registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
