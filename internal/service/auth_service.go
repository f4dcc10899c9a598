package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/task-manager-api/internal/models"
	"github.com/noah-isme/task-manager-api/internal/repository"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/token"
)

// dummyPasswordHash is compared against when the identity is unknown so
// that unknown-email and wrong-password failures stay in the same latency
// class. The plaintext behind it is irrelevant.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type tokenRegistry interface {
	StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
	RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService implements the authentication and session lifecycle:
// registration, login, token refresh, revocation and access-token
// validation.
type AuthService struct {
	users      authUserRepository
	tokens     tokenRegistry
	codec      *token.Codec
	validator  *validator.Validate
	logger     *zap.Logger
	refreshTTL time.Duration
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, tokens tokenRegistry, codec *token.Codec, validate *validator.Validate, logger *zap.Logger, refreshTTL time.Duration) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		validator:  validate,
		logger:     logger,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password. A taken
// email surfaces as DuplicateIdentity via the users table's unique index.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown email and wrong password return the identical error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	user, err := s.users.FindByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(req.Password))
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("failed login attempt", zap.String("user_id", user.ID))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	accessToken, _, _, err := s.codec.Encode(user.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	// Overwrites any previous value: one active refresh token per user.
	if err := s.tokens.StoreRefreshToken(ctx, user.ID, refreshToken, s.refreshTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token is not rotated on use; it stays valid until replaced by a
// new login, explicitly revoked, or expired.
func (s *AuthService) Refresh(ctx context.Context, userID, refreshToken string) (*models.RefreshResponse, error) {
	if userID == "" || refreshToken == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	stored, err := s.tokens.GetRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	accessToken, _, _, err := s.codec.Encode(user.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.TTL().Seconds()),
	}, nil
}

// RevokeAccess invalidates the presented access token for the remainder
// of its lifetime. Revoking an already-expired token is a no-op success,
// which makes the operation idempotent.
func (s *AuthService) RevokeAccess(ctx context.Context, rawToken string) error {
	claims, err := s.codec.DecodeExpired(rawToken)
	if err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	remaining := claims.Remaining(time.Now().UTC())
	if remaining <= 0 {
		return nil
	}

	if err := s.tokens.RevokeAccessToken(ctx, claims.JTI(), remaining); err != nil {
		return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	}
	return nil
}

// RevokeRefresh deletes the user's stored refresh token. Idempotent.
func (s *AuthService) RevokeRefresh(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteRefreshToken(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	}
	return nil
}

// ValidateAccessToken is the session validator: it decodes the token,
// checks the revoked set and resolves the subject to a live user. Every
// failure collapses to the generic invalid-credentials error.
func (s *AuthService) ValidateAccessToken(ctx context.Context, rawToken string) (*models.User, *token.Claims, error) {
	claims, err := s.codec.Decode(rawToken)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	revoked, err := s.tokens.IsAccessTokenRevoked(ctx, claims.JTI())
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	}
	if revoked {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}
	if !user.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	return user, claims, nil
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
