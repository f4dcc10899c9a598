package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", 30*time.Minute)

	signed, jti, expiresAt, err := codec.Encode("alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	require.NotEmpty(t, jti)

	claims, err := codec.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, jti, claims.JTI())
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestEncodeFreshJTIPerToken(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", time.Hour)

	_, first, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)
	_, second, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", time.Hour)
	other := NewCodec("another-secret", "task-manager-api", time.Hour)

	signed, _, _, err := other.Encode("alice@example.com")
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", time.Hour)

	_, err := codec.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsExpired(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", -time.Minute)

	signed, _, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeExpiredToleratesElapsedExpiry(t *testing.T) {
	codec := NewCodec("secret", "task-manager-api", -time.Minute)

	signed, jti, _, err := codec.Encode("alice@example.com")
	require.NoError(t, err)

	claims, err := codec.DecodeExpired(signed)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.JTI())
	assert.LessOrEqual(t, claims.Remaining(time.Now()), time.Duration(0))
}
