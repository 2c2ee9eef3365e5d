package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/metrics"
)

// Metrics records request counts and latency by route template, so
// query strings never create new series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
