// Package token encodes and decodes the signed access tokens issued at
// login. Tokens carry the user identity as subject plus a unique jti so a
// single token can be revoked before its natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the only error Decode returns. Malformed payloads,
// bad signatures and expired tokens are deliberately indistinguishable at
// this boundary.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
}

// JTI returns the unique token id used as the revocation key.
func (c *Claims) JTI() string {
	return c.ID
}

// Remaining reports how long the token could still validate. Zero or
// negative means it has already expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// Codec signs and verifies access tokens with a process-wide HS256 secret.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec builds a codec. The secret comes from configuration and is
// never logged.
func NewCodec(secret, issuer string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the configured access-token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode mints a signed token for the given subject with a fresh jti.
func (c *Codec) Encode(subject string) (signed string, jti string, expiresAt time.Time, err error) {
	issuedAt := time.Now().UTC()
	expiresAt = issuedAt.Add(c.ttl)
	jti = uuid.NewString()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err = tok.SignedString(c.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, expiresAt, nil
}

// Decode verifies signature and expiry together and returns the claims.
func (c *Codec) Decode(raw string) (*Claims, error) {
	return c.parse(raw, jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})))
}

// DecodeExpired verifies the signature but tolerates an elapsed expiry.
// Revocation uses it so that revoking an already-expired token stays a
// harmless no-op instead of an error.
func (c *Codec) DecodeExpired(raw string) (*Claims, error) {
	return c.parse(raw, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	))
}

func (c *Codec) parse(raw string, parser *jwt.Parser) (*Claims, error) {
	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
