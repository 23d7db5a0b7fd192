package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt prefix", hash)
	}
	if !VerifyPassword("secret1", hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("secret2", hash) {
		t.Error("expected wrong password to fail")
	}
	if VerifyPassword("", hash) {
		t.Error("expected empty password to fail")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, _ := HashPassword("secret1", bcrypt.MinCost)
	b, _ := HashPassword("secret1", bcrypt.MinCost)
	if a == b {
		t.Error("expected distinct digests for the same password")
	}
}

func TestHashPasswordInvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("secret1", 99)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	if VerifyPassword("secret1", "not-a-hash") {
		t.Error("expected malformed digest to fail")
	}
}
