package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, Envelope{Data: data})
}

// Message sends a 200 response carrying a short human-readable message.
func Message(c *gin.Context, msg string) {
	JSON(c, http.StatusOK, gin.H{"message": msg})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
