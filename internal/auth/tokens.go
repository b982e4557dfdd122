package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims extends JWT standard claims with Shoplane-specific fields.
// The subject carries the account ID as a decimal string; RoleID is omitted
// for accounts with no assigned role.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	RoleID *int64 `json:"role_id,omitempty"`
}

// SubjectID parses the subject claim as the account ID. Tokens whose subject
// is not a positive integer are rejected regardless of signature.
func (c *AccessClaims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return id, nil
}

// TokenCodec signs and verifies HS256 access tokens with a shared secret.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a codec for the given secret and access token TTL.
// A non-positive TTL falls back to 30 minutes.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = 30 * time.Minute //nolint:mnd // default access token TTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign creates a signed JWT access token for an identity. Access tokens are
// short-lived and validated by signature only (no DB hit on the hot path).
func (c *TokenCodec) Sign(identity *Identity) (string, error) {
	now := c.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
		Email:  identity.Email,
		RoleID: identity.RoleID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify validates a JWT access token and returns its claims. It checks the
// signature, the signing algorithm, expiry, and the subject format. Pinning
// the algorithm to HS256 blocks confusion attacks where a token declares a
// different method in its header.
func (c *TokenCodec) Verify(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := claims.SubjectID(); err != nil {
		return nil, err
	}

	return claims, nil
}
