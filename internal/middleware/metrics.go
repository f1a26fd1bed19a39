package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acadsync/timetable-api/internal/service"
)

// Metrics records per-request counters and latency histograms. Routes are
// labelled by their template path so cardinality stays bounded.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(started))
	}
}
