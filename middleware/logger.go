package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"storyfeed-api/pkg/logging"
)

// LoggerMiddleware writes one structured access log entry per request.
// Query strings are not logged.
func LoggerMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logging.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": float64(time.Since(start)) / float64(time.Millisecond),
			"ip":         c.ClientIP(),
			"size":       c.Writer.Size(),
			"request_id": c.GetString(RequestIDKey),
		}
		if id := c.GetInt(AuthorIDKey); id > 0 {
			fields["author_id"] = id
		}
		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
