package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxPasswordBytes is the longest password bcrypt accepts
	MaxPasswordBytes = 72
)

// HashPassword returns the salted bcrypt hash of password, salt and cost
// are encoded in the returned string.
func HashPassword(password string) (string, error) {
	buf, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: unable to hash password, cause %w", err)
	}
	return string(buf), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
// An empty hash never matches.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
