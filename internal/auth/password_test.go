package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() = %q, want bcrypt format", hash)
	}

	if !hasher.Compare(hash, "correct horse battery staple") {
		t.Error("Compare() = false for correct password")
	}

	if hasher.Compare(hash, "wrong password") {
		t.Error("Compare() = true for wrong password")
	}
}

func TestPasswordHasher_HashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same password should differ (salt)")
	}
}

func TestPasswordHasher_CompareMalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	cases := []string{
		"",
		"not-a-bcrypt-hash",
		"$2a$10$truncated",
	}
	for _, hash := range cases {
		if hasher.Compare(hash, "anything") {
			t.Errorf("Compare(%q) = true, want false", hash)
		}
	}
}

func TestNewPasswordHasher_CostClamp(t *testing.T) {
	cases := []struct {
		name string
		cost int
		want int
	}{
		{"too low", 0, bcrypt.DefaultCost},
		{"too high", 99, bcrypt.DefaultCost},
		{"in range", 12, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPasswordHasher(tc.cost)
			if h.cost != tc.want {
				t.Errorf("cost = %d, want %d", h.cost, tc.want)
			}
		})
	}
}

func TestPasswordHasher_HashTooLong(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	// bcrypt rejects inputs over 72 bytes
	_, err := hasher.Hash(strings.Repeat("x", 100))
	if err == nil {
		t.Fatal("Hash() should fail for oversized password")
	}
	if !errors.Is(err, ErrHashingFailed) {
		t.Errorf("error = %v, want ErrHashingFailed", err)
	}
}
