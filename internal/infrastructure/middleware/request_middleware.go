package middleware

import (
	"time"

	"geolatency/pkg/logger"
	"geolatency/pkg/utils"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// HTTPRecorder receives per-request observations.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestIDMiddleware propagates or assigns a request ID and stores it in the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := utils.SanitizeString(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = utils.NewRequestID()
		}
		id = utils.TruncateString(id, 64)

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLogMiddleware logs every request with the fields carried in its context and
// reports it to recorder when one is given.
func AccessLogMiddleware(cl *logger.ContextLogger, recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, route(c), status, duration)
		}
		cl.LogRequest(c.Request.Context(), c.Request.Method, c.Request.URL.Path, status, duration.Milliseconds())
	}
}
