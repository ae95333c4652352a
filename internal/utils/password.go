package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is applied when the configured cost falls outside
// bcrypt's accepted range.
const DefaultBcryptCost = 12

// HashPassword hashes a plaintext password with bcrypt at the given
// cost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt
// hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
