package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records completed HTTP requests.
type RequestObserver interface {
	ObserveRequest(method, route, status string, d time.Duration)
}

// Metrics reports each request's latency to obs, labelled by the matched
// route pattern. Unmatched paths are reported as "unmatched".
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
