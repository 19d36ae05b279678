package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifetag/lifetag-api/pkg/logger"
)

// Logger logs every request after it completes, keyed by the request ID
// set by RequestID.
func Logger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		event := l.Zerolog().Info()
		switch {
		case status >= 500:
			event = l.Zerolog().Error()
		case status >= 400:
			event = l.Zerolog().Warn()
		}

		event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_agent", c.Request.UserAgent()).
			Msg("request processed")
	}
}
