package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// HashConfig defines the scrypt parameters used for password hashing
type HashConfig struct {
	N       int // CPU/memory cost parameter
	R       int // Block size parameter
	P       int // Parallelization parameter
	KeyLen  int // Derived key length in bytes
	SaltLen int // Random salt length in bytes
}

// DefaultHashConfig returns the scrypt parameters for stored passwords
func DefaultHashConfig() HashConfig {
	return HashConfig{
		N:       32768,
		R:       8,
		P:       1,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// NewSalt returns n random bytes
func NewSalt(n int) ([]byte, error) {
	if n < 8 {
		return nil, errors.New("salt must be at least 8 bytes")
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword derives the hex-encoded scrypt hash of password with salt
func HashPassword(password string, salt []byte, cfg HashConfig) (string, error) {
	key, err := scrypt.Key([]byte(password), salt, cfg.N, cfg.R, cfg.P, cfg.KeyLen)
	if err != nil {
		return "", fmt.Errorf("key derivation failed: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password hashes to the stored hex hash.
// The comparison runs in constant time.
func VerifyPassword(password string, salt []byte, storedHash string, cfg HashConfig) bool {
	computed, err := HashPassword(password, salt, cfg)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
