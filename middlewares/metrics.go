package middlewares

import (
	"time"

	"github.com/Kariqs/farmart-api/telemetry"
	"github.com/gin-gonic/gin"
)

func Metrics(metrics *telemetry.HTTPMetrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(ctx.Request.Context(), ctx.Request.Method, route, ctx.Writer.Status(), time.Since(start).Seconds())
	}
}
