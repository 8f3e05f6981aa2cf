package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourbook_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_notifications_total",
		Help: "Notifications dispatched by type and outcome.",
	}, []string{"type", "outcome"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"scope"})

	BookingsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tourbook_bookings_swept_total",
		Help: "Accepted bookings moved to past by the sweeper.",
	})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
