package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/logging"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/metrics"
)

const (
	// RequestIDHeader carries the request ID in both directions
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request ID
	RequestIDKey = "request_id"
	// LoggerKey is the gin context key holding the request-scoped logger
	LoggerKey = "logger"
)

// RequestID assigns every request an ID, reusing the client's when sent
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Logger middleware logs request details and stores a request-scoped
// logger in the context
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		reqLogger := logger.WithRequestID(GetRequestID(c))
		c.Set(LoggerKey, reqLogger)

		c.Next()

		reqLogger.LogHTTPRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// GetLogger returns the request-scoped logger, or fallback if none is set
func GetLogger(c *gin.Context, fallback *logging.Logger) *logging.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*logging.Logger); ok {
			return l
		}
	}
	return fallback
}

// Metrics middleware records request counts and latency per route
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
