package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-daily-scheduler/internal/service"
)

// Route groups reported by the metrics middleware.
const (
	RouteGroupGeneration   = "generation"
	RouteGroupReads        = "reads"
	RouteGroupAvailability = "availability"
	RouteGroupOps          = "ops"
	RouteGroupUnmatched    = "unmatched"
)

// Metrics records every request twice: once by method and route pattern, once by API area,
// so generation traffic can be told apart from schedule reads.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		// unmatched paths collapse into one label to keep cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = RouteGroupUnmatched
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
		metricsSvc.ObserveRouteGroup(RouteGroup(c.Request.Method, path), status)
	}
}

// RouteGroup classifies a route pattern.
func RouteGroup(method, pattern string) string {
	switch {
	case pattern == RouteGroupUnmatched:
		return RouteGroupUnmatched
	case strings.Contains(pattern, "/schedules/daily/generate"),
		strings.Contains(pattern, "/schedules/daily/runs") && method != "GET",
		strings.HasSuffix(pattern, "/status"):
		return RouteGroupGeneration
	case strings.Contains(pattern, "/schedules/daily"):
		return RouteGroupReads
	case strings.Contains(pattern, "/teachers/"):
		return RouteGroupAvailability
	default:
		return RouteGroupOps
	}
}
