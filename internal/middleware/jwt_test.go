package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/task-manager-api/internal/models"
	"github.com/noah-isme/task-manager-api/internal/repository"
	"github.com/noah-isme/task-manager-api/internal/service"
	"github.com/noah-isme/task-manager-api/pkg/token"
)

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

type stubRegistry struct {
	refresh map[string]string
	revoked map[string]bool
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{refresh: map[string]string{}, revoked: map[string]bool{}}
}

func (s *stubRegistry) StoreRefreshToken(ctx context.Context, userID, tok string, ttl time.Duration) error {
	s.refresh[userID] = tok
	return nil
}

func (s *stubRegistry) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	value, ok := s.refresh[userID]
	if !ok {
		return "", repository.ErrTokenNotFound
	}
	return value, nil
}

func (s *stubRegistry) DeleteRefreshToken(ctx context.Context, userID string) error {
	delete(s.refresh, userID)
	return nil
}

func (s *stubRegistry) RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error {
	s.revoked[jti] = true
	return nil
}

func (s *stubRegistry) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked[jti], nil
}

func newSessionFixture(t *testing.T) (*gin.Engine, *service.AuthService, *stubRegistry, *token.Codec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &stubUserRepo{user: &models.User{ID: "u1", Email: "alice@example.com", PasswordHash: string(hash), Active: true}}
	registry := newStubRegistry()
	codec := token.NewCodec("test-secret", "task-manager-api", 30*time.Minute)
	authSvc := service.NewAuthService(users, registry, codec, validator.New(), zap.NewNop(), time.Hour)

	r := gin.New()
	r.GET("/protected", Session(authSvc, nil), func(c *gin.Context) {
		user := c.MustGet(ContextUserKey).(*models.User)
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	})
	return r, authSvc, registry, codec
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMissingHeader(t *testing.T) {
	r, _, _, _ := newSessionFixture(t)

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionMalformedHeader(t *testing.T) {
	r, _, _, _ := newSessionFixture(t)

	w := get(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionValidToken(t *testing.T) {
	r, _, _, codec := newSessionFixture(t)

	signed, _, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)

	w := get(r, "Bearer "+signed)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestSessionRevokedToken(t *testing.T) {
	r, _, registry, codec := newSessionFixture(t)

	signed, jti, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)
	registry.revoked[jti] = true

	w := get(r, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionUnknownSubject(t *testing.T) {
	r, _, _, codec := newSessionFixture(t)

	signed, _, _, err := codec.Encode("ghost@example.com")
	require.NoError(t, err)

	w := get(r, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// All rejection paths must be indistinguishable to the client.
func TestSessionFailureBodiesIdentical(t *testing.T) {
	r, _, registry, codec := newSessionFixture(t)

	expired := token.NewCodec("test-secret", "task-manager-api", -time.Minute)
	expiredToken, _, _, err := expired.Encode("alice@example.com")
	require.NoError(t, err)

	revokedToken, jti, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)
	registry.revoked[jti] = true

	bodies := map[string]string{}
	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "Bearer not-a-token",
		"expired":   "Bearer " + expiredToken,
		"revoked":   "Bearer " + revokedToken,
	} {
		w := get(r, header)
		require.Equal(t, http.StatusUnauthorized, w.Code, name)

		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), name)
		bodies[name] = envelope.Error.Code + "|" + envelope.Error.Message
	}

	reference := bodies["missing"]
	for name, body := range bodies {
		assert.Equal(t, reference, body, name)
	}
}
