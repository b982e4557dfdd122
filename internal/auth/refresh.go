package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// RefreshSecret is a freshly minted refresh token pair: the raw value handed
// to the client exactly once, and the SHA-256 hash that goes in the database.
// The raw value is never stored or logged.
type RefreshSecret struct {
	Raw  string
	Hash string
}

// GenerateRefreshSecret mints a 256-bit cryptographically random refresh
// token. Hex encoding keeps the raw value URL- and cookie-safe.
func GenerateRefreshSecret() (RefreshSecret, error) {
	b := make([]byte, 32) //nolint:mnd // 256-bit token
	if _, err := rand.Read(b); err != nil {
		return RefreshSecret{}, fmt.Errorf("generating refresh token: %w", err)
	}
	raw := hex.EncodeToString(b)
	return RefreshSecret{Raw: raw, Hash: HashRefreshToken(raw)}, nil
}

// HashRefreshToken derives the storable hash of a raw refresh token. The
// token already carries 256 bits of entropy, so a plain SHA-256 digest is
// enough without a salt or work factor.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RefreshHashEqual compares two refresh token hashes in constant time.
func RefreshHashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
