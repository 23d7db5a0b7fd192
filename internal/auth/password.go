package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when a login names an unknown user so that
// both failure paths spend the same bcrypt work.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("advent-dummy-password"), bcrypt.DefaultCost)
	return h
})

// HashPassword returns a bcrypt digest with an embedded random salt.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches digest using bcrypt's own
// constant-time comparison.
func VerifyPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// BurnVerify runs a comparison whose result is discarded.
func BurnVerify(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(plain))
}
