package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records every request under its route template, so
// /logs?type=X and /logs share a series.
func GinMiddleware(c *Collector) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.ObserveHTTP(route, ctx.Writer.Status(), time.Since(start))
	}
}
