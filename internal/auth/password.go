package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for password hashing.
const BcryptCost = 12

// dummyHash is a bcrypt hash of a random throwaway value. CheckPassword
// runs against it when no stored hash exists, so a login attempt for an
// unknown username costs the same as one for a known username.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

var (
	ErrPasswordEmpty   = errors.New("password is required")
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")
)

// HashPassword derives a salted bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. The
// comparison inside bcrypt is constant-time relative to the hash. Pass an
// empty storedHash for unknown users: the check still runs at full cost
// against a dummy hash and always fails.
func CheckPassword(storedHash, password string) bool {
	if storedHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// ValidatePassword enforces password length bounds. Any non-empty
// password is accepted up to bcrypt's 72-byte input limit.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
