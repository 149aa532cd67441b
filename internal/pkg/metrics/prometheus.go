package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mindspero"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Entitlement metrics
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "decisions_total",
			Help:      "Gate decisions by capability and reason",
		},
		[]string{"capability", "reason"},
	)

	// Document metrics
	stageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "stage_transitions_total",
			Help:      "Document stage transitions by target stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "processing_duration_seconds",
			Help:      "Time spent by the worker on one processing step",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	documentsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "by_stage",
			Help:      "Number of documents waiting in a processing stage",
		},
		[]string{"stage"},
	)

	// Subscription metrics
	subscriptionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "events_total",
			Help:      "Subscription lifecycle events",
		},
		[]string{"event"},
	)

	usersByTier = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "users_by_tier",
			Help:      "Number of users per current tier",
		},
		[]string{"tier"},
	)

	// Billing metrics
	revenueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "revenue_minor_total",
			Help:      "Captured revenue in minor currency units",
		},
		[]string{"plan", "currency"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGateDecision records one entitlement check
func RecordGateDecision(capability, reason string) {
	gateDecisionsTotal.WithLabelValues(capability, reason).Inc()
}

// RecordStageTransition records a document stage change attempt
func RecordStageTransition(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	stageTransitionsTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordProcessing records how long a worker step took
func RecordProcessing(step string, duration time.Duration) {
	processingDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// SetDocumentsByStage sets the gauge for documents waiting in stage
func SetDocumentsByStage(stage string, count float64) {
	documentsByStage.WithLabelValues(stage).Set(count)
}

// RecordSubscriptionEvent records a subscription lifecycle event
func RecordSubscriptionEvent(event string) {
	subscriptionEventsTotal.WithLabelValues(event).Inc()
}

// SetUsersByTier sets the gauge for users on tier
func SetUsersByTier(tier string, count float64) {
	usersByTier.WithLabelValues(tier).Set(count)
}

// RecordRevenue adds a captured payment to the revenue counter
func RecordRevenue(plan, currency string, amountMinor int64) {
	revenueTotal.WithLabelValues(plan, currency).Add(float64(amountMinor))
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
