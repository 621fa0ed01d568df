package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout attaches a deadline of d to the request context and runs the rest
// of the chain on the same goroutine.
//
// If the deadline has passed when the chain returns and nothing was written,
// the client gets a 503 in the standard envelope. A handler blocked on a call
// that ignores its context is not interrupted; every store call takes ctx.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Request timed out",
				"data":    gin.H{},
			})
		}
	}
}
