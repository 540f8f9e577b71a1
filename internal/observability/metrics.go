package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "procto",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests",
	}, []string{"method", "route", "status"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "procto",
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Number of exam sessions started",
	})

	sessionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procto",
		Subsystem: "sessions",
		Name:      "submitted_total",
		Help:      "Number of exam sessions submitted, by trigger",
	}, []string{"trigger"})
)

// CountSessionStarted increments the started-sessions counter.
func CountSessionStarted() {
	sessionsStarted.Inc()
}

// CountSessionSubmitted increments the submitted-sessions counter. trigger
// distinguishes the settlement route: "student" (explicit submit), "lazy"
// (settled on a read/write past the deadline), or "deadline" (sweeper).
func CountSessionSubmitted(trigger string) {
	sessionsSubmitted.WithLabelValues(trigger).Inc()
}

// HTTPMetrics records per-route request durations.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
