package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/task-manager-api/internal/service"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated user.
const ContextUserKey = "currentUser"

// Session protects routes by requiring a valid, unrevoked access token
// that resolves to a live user. Missing header, malformed token, bad
// signature, expiry, revocation and unknown subject all produce the same
// generic 401.
func Session(authService *service.AuthService, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			metrics.ObserveAuthFailure()
			response.Error(c, appErrors.ErrInvalidCredentials)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			metrics.ObserveAuthFailure()
			response.Error(c, appErrors.ErrInvalidCredentials)
			c.Abort()
			return
		}

		user, _, err := authService.ValidateAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			metrics.ObserveAuthFailure()
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}
