package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenRepo(t *testing.T) (*TokenRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenRepository(client, zap.NewNop()), mr
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	repo, _ := newTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StoreRefreshToken(ctx, "u1", "first-token", time.Hour))

	got, err := repo.GetRefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "first-token", got)
}

func TestRefreshTokenOverwriteInvalidatesPrevious(t *testing.T) {
	repo, _ := newTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StoreRefreshToken(ctx, "u1", "first-token", time.Hour))
	require.NoError(t, repo.StoreRefreshToken(ctx, "u1", "second-token", time.Hour))

	got, err := repo.GetRefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "second-token", got)
}

func TestRefreshTokenExpires(t *testing.T) {
	repo, mr := newTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StoreRefreshToken(ctx, "u1", "token", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.GetRefreshToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDeleteRefreshTokenIdempotent(t *testing.T) {
	repo, _ := newTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StoreRefreshToken(ctx, "u1", "token", time.Hour))
	require.NoError(t, repo.DeleteRefreshToken(ctx, "u1"))
	require.NoError(t, repo.DeleteRefreshToken(ctx, "u1"))

	_, err := repo.GetRefreshToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRevokeAccessToken(t *testing.T) {
	repo, _ := newTokenRepo(t)
	ctx := context.Background()

	revoked, err := repo.IsAccessTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.RevokeAccessToken(ctx, "jti-1", time.Hour))
	require.NoError(t, repo.RevokeAccessToken(ctx, "jti-1", time.Hour))

	revoked, err = repo.IsAccessTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokeAccessTokenEntryExpiresWithToken(t *testing.T) {
	repo, mr := newTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RevokeAccessToken(ctx, "jti-1", time.Minute))
	mr.FastForward(2 * time.Minute)

	revoked, err := repo.IsAccessTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeAccessTokenExpiredTTLNoop(t *testing.T) {
	repo, _ := newTokenRepo(t)

	require.NoError(t, repo.RevokeAccessToken(context.Background(), "jti-1", -time.Minute))

	revoked, err := repo.IsAccessTokenRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
