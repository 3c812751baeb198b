package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiponge/servicekit/logger"
)

// Paths probed constantly by orchestrators and the registry itself; logging
// them would drown everything else out.
var quietPaths = map[string]bool{
	"/health":      true,
	"/health/live": true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status, and duration. Health-probe paths are silently skipped.
func RequestLogger() gin.HandlerFunc {
	log := logger.Get("server")
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"client":      c.ClientIP(),
		}
		if id := c.GetString(ContextKeyRequestID); id != "" {
			fields[ContextKeyRequestID] = id
		}
		if duration > 500*time.Millisecond {
			fields["slow"] = true
		}

		switch {
		case status >= 500:
			log.Error("Request completed", fields)
		case status >= 400:
			log.Warn("Request completed", fields)
		default:
			log.Debug("Request completed", fields)
		}
	}
}
