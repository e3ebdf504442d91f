// Package metrics exposes the Prometheus instruments of the interview service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Interview sessions currently in progress",
		},
	)

	sessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_session_transitions_total",
			Help: "Session lifecycle transitions",
		},
		[]string{"status"}, // IN_PROGRESS, COMPLETED
	)

	sessionsRetired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_retired_total",
			Help: "Sessions ended or dropped without the candidate asking",
		},
		[]string{"reason"}, // idle, shutdown, detached
	)

	monitorDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_monitor_dropped_events_total",
			Help: "Violation events not delivered to a full monitor subscriber",
		},
	)

	violations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_violations_total",
			Help: "Proctoring violations recorded",
		},
		[]string{"type"},
	)

	detectorNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_detector_notices_total",
			Help: "Non-fatal detector conditions such as an unavailable camera",
		},
		[]string{"detector", "kind"},
	)

	reportGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_report_generations_total",
			Help: "Report generation attempts",
		},
		[]string{"status"}, // success, unavailable, invalid_state, error
	)

	reportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_report_generation_duration_seconds",
			Help:    "Time spent waiting on the scoring collaborator",
			Buckets: prometheus.DefBuckets,
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)
)

func SessionStarted() {
	sessionsActive.Inc()
	sessionTransitions.WithLabelValues("IN_PROGRESS").Inc()
}

func SessionCompleted() {
	sessionsActive.Dec()
	sessionTransitions.WithLabelValues("COMPLETED").Inc()
}

// SessionRecovered counts a session completed from its persisted record
// after the process that ran it was gone. It was never active here.
func SessionRecovered() {
	sessionTransitions.WithLabelValues("COMPLETED").Inc()
}

// SessionRetired counts a session ended or dropped by the service itself.
func SessionRetired(reason string) {
	sessionsRetired.WithLabelValues(reason).Inc()
}

// MonitorDropped adds the events a session's monitor could not deliver.
func MonitorDropped(n int) {
	if n > 0 {
		monitorDropped.Add(float64(n))
	}
}

func ViolationRecorded(violationType string) {
	violations.WithLabelValues(violationType).Inc()
}

func DetectorNotice(detector, kind string) {
	detectorNotices.WithLabelValues(detector, kind).Inc()
}

// ReportGenerated records the outcome and latency of one generation attempt.
func ReportGenerated(status string, elapsed time.Duration) {
	reportGenerations.WithLabelValues(status).Inc()
	reportDuration.Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
