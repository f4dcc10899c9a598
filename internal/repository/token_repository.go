package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrTokenNotFound is returned when no refresh token is stored for a user.
var ErrTokenNotFound = errors.New("token not found")

const (
	refreshKeyPrefix = "refresh_token:"
	revokedKeyPrefix = "revoked_token:"

	// registryTimeout caps each registry round trip. A timed-out call is
	// retried once before surfacing as a transient failure.
	registryTimeout = 2 * time.Second
)

// TokenRepository is the shared revocation registry: it records the single
// active refresh token per user and the jti of every revoked access token.
// All operations are single-key Redis commands, so correctness holds when
// several server instances share one Redis.
type TokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewTokenRepository constructs a token repository.
func NewTokenRepository(client *redis.Client, logger *zap.Logger) *TokenRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenRepository{client: client, logger: logger}
}

// StoreRefreshToken records the user's current refresh token, overwriting
// any prior value. The overwrite is what enforces the single active
// session policy.
func (r *TokenRepository) StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return r.withRetry(ctx, "store_refresh", func(opCtx context.Context) error {
		return r.client.Set(opCtx, refreshKeyPrefix+userID, token, ttl).Err()
	})
}

// GetRefreshToken returns the stored refresh token for the user, or
// ErrTokenNotFound when none is stored or it has expired.
func (r *TokenRepository) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var value string
	err := r.withRetry(ctx, "get_refresh", func(opCtx context.Context) error {
		res, err := r.client.Get(opCtx, refreshKeyPrefix+userID).Result()
		if err != nil {
			return err
		}
		value = res
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return value, nil
}

// DeleteRefreshToken removes the user's refresh token. Deleting a missing
// key is a successful no-op.
func (r *TokenRepository) DeleteRefreshToken(ctx context.Context, userID string) error {
	return r.withRetry(ctx, "delete_refresh", func(opCtx context.Context) error {
		return r.client.Del(opCtx, refreshKeyPrefix+userID).Err()
	})
}

// RevokeAccessToken marks a jti as revoked for the remaining lifetime of
// its token. There is no need to retain the entry longer than the token
// could still validate. Idempotent.
func (r *TokenRepository) RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.withRetry(ctx, "revoke_access", func(opCtx context.Context) error {
		return r.client.Set(opCtx, revokedKeyPrefix+jti, "1", ttl).Err()
	})
}

// IsAccessTokenRevoked reports whether the jti is in the revoked set.
func (r *TokenRepository) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.withRetry(ctx, "check_revoked", func(opCtx context.Context) error {
		n, err := r.client.Exists(opCtx, revokedKeyPrefix+jti).Result()
		if err != nil {
			return err
		}
		revoked = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// Close releases the underlying Redis connection.
func (r *TokenRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *TokenRepository) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, registryTimeout)
		defer cancel()
		return fn(opCtx)
	}

	err := attempt()
	if err == nil || errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return err
	}

	r.logger.Warn("token registry call failed, retrying", zap.String("op", op), zap.Error(err))
	if err = attempt(); err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	return fmt.Errorf("token registry %s: %w", op, err)
}
