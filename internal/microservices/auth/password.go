package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword creates a bcrypt hash from the given plaintext password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword checks if the provided plaintext password matches the stored bcrypt hash.
func VerifyPassword(hashedPassword, providedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(providedPassword))
}

// HashToken digests the token before bcrypt: a signed JWT is far longer than
// bcrypt's 72-byte input limit.
func HashToken(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	hashedBytes, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyToken checks a token against its stored digest hash.
func VerifyToken(hashedToken, providedToken string) error {
	digest := sha256.Sum256([]byte(providedToken))
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), digest[:])
}
