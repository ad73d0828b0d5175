package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID reuses an inbound X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDKey, id)
		c.Next()
	}
}

// AccessLog records one line and the request metrics per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
			"requestId":  requestID(c),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("Request failed", fields)
			return
		}
		log.Debug("Request served", fields)
	}
}

// Recovery converts a handler panic into a 500 envelope.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Handler panic", map[string]interface{}{
					"panic":     fmt.Sprint(r),
					"route":     c.FullPath(),
					"requestId": requestID(c),
				})
				failure(c, http.StatusInternalServerError, apperrors.ErrCodeInternal, "Unexpected error", "")
				c.Abort()
			}
		}()
		c.Next()
	}
}
