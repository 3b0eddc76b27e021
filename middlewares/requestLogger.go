package middlewares

import (
	"log/slog"
	"time"

	"github.com/Kariqs/farmart-api/telemetry"
	"github.com/gin-gonic/gin"
)

// RequestLogger wraps each request in a server span and logs it once done.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		spanCtx, span := telemetry.StartSpan(ctx.Request.Context(), ctx.Request.Method+" "+route)
		defer span.End()
		ctx.Request = ctx.Request.WithContext(spanCtx)

		ctx.Next()

		status := ctx.Writer.Status()
		attrs := []any{
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ctx.ClientIP(),
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, "errors", ctx.Errors.String())
		}

		switch {
		case status >= 500:
			logger.ErrorContext(spanCtx, "request completed", attrs...)
		case status >= 400:
			logger.WarnContext(spanCtx, "request completed", attrs...)
		default:
			logger.InfoContext(spanCtx, "request completed", attrs...)
		}
	}
}
