package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/task-manager-api/internal/middleware"
	"github.com/noah-isme/task-manager-api/internal/models"
)

// userFromContext returns the authenticated user stored by the session
// middleware, or nil when the request never passed through it.
func userFromContext(c *gin.Context) *models.User {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
