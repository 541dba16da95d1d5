package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"carbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger writes one line per request. Server errors and gin errors
// are logged at error level with their details.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := requestFields(c, start)
		status := c.Writer.Status()

		switch {
		case len(c.Errors) > 0:
			for _, err := range c.Errors {
				log.Error("request_error", append(fields,
					zap.String("type", fmt.Sprintf("%v", err.Type)),
					zap.Error(err.Err),
					zap.Any("meta", err.Meta),
				)...)
			}
		case status >= http.StatusInternalServerError:
			log.Error("request_failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request_rejected", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

// Recovery turns a panic into a 500 envelope and logs the stack.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic", append(requestFields(c, start),
					zap.String("error", fmt.Sprintf("%v", recovered)),
					zap.ByteString("stack", debug.Stack()),
				)...)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
		}()
		c.Next()
	}
}

func requestFields(c *gin.Context, start time.Time) []zap.Field {
	return []zap.Field{
		zap.Int("status", c.Writer.Status()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.Int64("client_id", c.GetInt64("client_id")),
		zap.String("request_id", requestID(c)),
		zap.Duration("latency", time.Since(start)),
	}
}

func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = c.GetHeader("X-Request-Id")
	}
	return id
}
