package auth

import (
	"regexp"
	"testing"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

func TestGenerateRefreshSecret(t *testing.T) {
	secret, err := GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret() error = %v", err)
	}

	// 32 random bytes hex-encoded
	if len(secret.Raw) != 64 {
		t.Errorf("Raw length = %d, want 64", len(secret.Raw))
	}
	if !hexPattern.MatchString(secret.Raw) {
		t.Errorf("Raw = %q, want lowercase hex", secret.Raw)
	}

	if secret.Hash != HashRefreshToken(secret.Raw) {
		t.Error("Hash does not match HashRefreshToken(Raw)")
	}
	if secret.Hash == secret.Raw {
		t.Error("Hash must differ from Raw")
	}
}

func TestGenerateRefreshSecret_Unique(t *testing.T) {
	a, err := GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret() error = %v", err)
	}
	b, err := GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret() error = %v", err)
	}
	if a.Raw == b.Raw {
		t.Error("two generated secrets should never collide")
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	h1 := HashRefreshToken("some-token")
	h2 := HashRefreshToken("some-token")
	if h1 != h2 {
		t.Error("HashRefreshToken should be deterministic")
	}

	// sha256 hex digest
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}

	if HashRefreshToken("other-token") == h1 {
		t.Error("different tokens should hash differently")
	}
}

func TestRefreshHashEqual(t *testing.T) {
	h := HashRefreshToken("token")

	if !RefreshHashEqual(h, h) {
		t.Error("RefreshHashEqual(h, h) = false")
	}
	if RefreshHashEqual(h, HashRefreshToken("different")) {
		t.Error("RefreshHashEqual should reject different hashes")
	}
	if RefreshHashEqual(h, h[:32]) {
		t.Error("RefreshHashEqual should reject different lengths")
	}
	if RefreshHashEqual("", "") != true {
		t.Error("two empty strings are equal")
	}
}
