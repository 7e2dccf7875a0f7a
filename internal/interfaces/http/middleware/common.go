// Package middleware provides the gin middleware of the feed service.
package middleware

import (
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID in and out
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key of the request ID
	RequestIDKey = "request_id"
	// MaxRequestIDLength bounds caller supplied request IDs
	MaxRequestIDLength = 128
)

// RequestID reuses a caller supplied X-Request-ID or generates one.
// The ID is stored in the gin context and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = generateRequestID()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		ctx, _ := logger.WithRequestID(c.Request.Context(), logger.FromContext(c.Request.Context()), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func generateRequestID() string {
	return uuid.NewString()
}

// NoCache disables caching of dynamic responses
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// abortJSON ends the request with the standard error body
func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
