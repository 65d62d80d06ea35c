package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
)

// Metrics records request counts and latency per route template, so
// patient ids do not blow up label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
