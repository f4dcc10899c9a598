package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Refresh(ctx context.Context, userID, refreshToken string) (*models.RefreshResponse, error)
	RevokeAccess(ctx context.Context, rawToken string) error
	RevokeRefresh(ctx context.Context, userID string) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Register a new user
// @Description Create a new account from email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	if _, err := h.service.Register(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "user created successfully")
}

// Token godoc
// @Summary Obtain an access token
// @Description Authenticate with the OAuth2 password form and receive a token pair
// @Tags Authentication
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Exchange the stored refresh token for a new access token
// @Tags Authentication
// @Produce json
// @Param user_id query string true "User id"
// @Param refresh_token query string true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /token/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID := c.Query("user_id")
	refreshToken := c.Query("refresh_token")

	res, err := h.service.Refresh(c.Request.Context(), userID, refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Revoke godoc
// @Summary Revoke an access token
// @Description Invalidate the presented access token for the rest of its lifetime
// @Tags Authentication
// @Produce json
// @Param token query string true "Access token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /token/revoke [post]
func (h *AuthHandler) Revoke(c *gin.Context) {
	if err := h.service.RevokeAccess(c.Request.Context(), c.Query("token")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "revoked")
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the caller's access token and stored refresh token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	if raw := bearerToken(c); raw != "" {
		if err := h.service.RevokeAccess(c.Request.Context(), raw); err != nil {
			response.Error(c, err)
			return
		}
	}

	if err := h.service.RevokeRefresh(c.Request.Context(), user.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "logged out")
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	response.JSON(c, http.StatusOK, models.UserInfo{ID: user.ID, Email: user.Email})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
