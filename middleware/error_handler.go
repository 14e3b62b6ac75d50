package middleware

import (
	"github.com/gin-gonic/gin"

	"clinic-backend/logger"
	"clinic-backend/utils"
)

// ErrorHandler reports errors attached with c.Error to Sentry and the log.
// Handlers only attach store failures; client errors are not reported.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, ginErr := range c.Errors {
			log.WithContext(c.Request.Context()).
				WithError(ginErr.Err).
				WithField("path", c.FullPath()).
				Error("request failed")
			utils.CaptureError(ginErr.Err, map[string]interface{}{
				"endpoint":   c.Request.URL.Path,
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"request_id": c.GetString(RequestIDKey),
			})
		}
	}
}
