// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gateway-service/internal/utils"
)

// LoggingMiddleware logs every request once it completes. Successful hits on
// quietPaths (health checks polled by orchestrators) are logged at debug level. The
// WebSocket stream is logged when the connection closes.
func LoggingMiddleware(logger *utils.ServiceLogger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(quietPaths))
	for _, path := range quietPaths {
		quiet[path] = true
	}

	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		logger.LogAPIRequest(utils.APIRequest{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			RequestID:  c.GetString("request_id"),
			StatusCode: c.Writer.Status(),
			Duration:   time.Since(startTime),
		}, quiet[c.Request.URL.Path])
	}
}
