package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Access returns gin middleware that logs one http_access line per request.
// Request bodies are never read.
func Access(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}
