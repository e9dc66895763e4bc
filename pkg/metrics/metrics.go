package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route, method and status."},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tokens_issued_total", Help: "Session tokens issued."},
	)
	PaymentNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "payment_notifications_total", Help: "Gateway payment notifications by outcome."},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, TokensIssued, PaymentNotifications)
}

// Handler records request count and latency per matched route.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Exposer serves the default prometheus registry.
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
