package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total number of leads created",
		},
	)

	leadTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_status_transitions_total",
			Help: "Total number of lead status changes by target status",
		},
		[]string{"status"},
	)

	outboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_messages_total",
			Help: "Total number of outbound messages by channel and delivery outcome",
		},
		[]string{"channel", "outcome"},
	)

	nudgesFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nudges_fired_total",
			Help: "Total number of nudges fired",
		},
	)

	nudgeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nudge_failures_total",
			Help: "Total number of leads skipped in a tick because of an error",
		},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nudge_tick_duration_seconds",
			Help:    "Duration of nudge scheduler ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Gin records request count and latency per route template.
func Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordLeadCreated() {
	leadsCreated.Inc()
}

func RecordTransition(status string) {
	leadTransitions.WithLabelValues(status).Inc()
}

func RecordOutbound(channel, outcome string) {
	outboundMessages.WithLabelValues(channel, outcome).Inc()
}

func RecordNudge() {
	nudgesFired.Inc()
}

func RecordNudgeFailure() {
	nudgeFailures.Inc()
}

func ObserveTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}
