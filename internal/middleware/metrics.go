package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/service"
)

// Metrics observes every request on the shared registry. Unmatched routes are
// bucketed under a single label so probe scans cannot blow up cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
