package middleware

import (
	"log/slog"
	"time"

	"tourbook/pkg/apierror"

	"github.com/gin-gonic/gin"
)

// RequireBackend answers every request with a configuration error while the
// auth service settings are missing.
func RequireBackend(configured bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !configured {
			apierror.ConfigMissing(c)
			return
		}
		c.Next()
	}
}

func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()))
	}
}

func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered))
		apierror.Respond(c, apierror.InternalError, "internal server error")
	})
}
