package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit rejects bodies larger than maxBytes. Zero or less disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortJSON(c, http.StatusRequestEntityTooLarge, "ERR_REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size")
			return
		}
		// bodies without Content-Length fail on read instead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
