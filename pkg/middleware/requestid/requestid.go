// Package requestid tags each request with a correlation id so the log
// lines of one auth or task flow can be grouped together.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the correlation id on both request and response.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware honors a caller-supplied X-Request-ID and mints a fresh one
// otherwise. The id is echoed on the response so a client can quote it
// when reporting a failed login or task operation.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the request id stored in the Gin context, or an empty
// string outside the middleware.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
