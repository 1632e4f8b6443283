package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/fitetl/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Logger returns a Gin middleware that injects a request-scoped logger and
// logs each request's completion with status and latency.
// Parameters:
//   - base: logger to derive request loggers from.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := base.WithFields(logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		}).WithContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		logger.With(logger.Fields{
			logger.FieldStatus: c.Writer.Status(),
			"client_ip":        c.ClientIP(),
		}).WithDuration(start).Info(ctx, "%s %s", c.Request.Method, c.Request.URL.RequestURI())
	}
}
