package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "najdeno",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "najdeno",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	claimsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "najdeno",
			Subsystem: "claims",
			Name:      "submitted_total",
			Help:      "Claim submissions by outcome.",
		},
		[]string{"outcome"},
	)

	claimDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "najdeno",
			Subsystem: "claims",
			Name:      "decisions_total",
			Help:      "Approve and reject calls by outcome.",
		},
		[]string{"decision", "outcome"},
	)

	claimsAutoRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "najdeno",
			Subsystem: "claims",
			Name:      "auto_rejected_total",
			Help:      "Pending claims rejected because a rival claim was approved.",
		},
	)

	approvalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "najdeno",
			Subsystem: "claims",
			Name:      "approval_duration_seconds",
			Help:      "Duration of the approval transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		claimsSubmitted,
		claimDecisions,
		claimsAutoRejected,
		approvalDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency per matched route.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		// ServeMux fills in r.Pattern on the request it routes.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordSubmission counts a claim submission; outcome is "created" or an error kind.
func RecordSubmission(outcome string) {
	claimsSubmitted.WithLabelValues(outcome).Inc()
}

// RecordDecision counts an approve or reject call.
func RecordDecision(decision, outcome string) {
	claimDecisions.WithLabelValues(decision, outcome).Inc()
}

// RecordApproval records a committed approval and the rivals it rejected.
func RecordApproval(duration time.Duration, rejected int64) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	approvalDuration.Observe(duration.Seconds())
	claimsAutoRejected.Add(float64(rejected))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
