package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-lms/timetable-api/internal/service"
)

// Metrics returns middleware that records per-request method, route and
// status observations into the timetable engine's metric registry. A nil
// service disables collection without touching the handler chain.
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
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
