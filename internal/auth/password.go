package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// BcryptVerifier is the production CredentialVerifier.
type BcryptVerifier struct {
	cost int
	// dummy is compared against when no account matches so that unknown
	// usernames cost the same time as wrong passwords.
	dummy []byte
}

// NewBcryptVerifier builds a verifier with the given cost.
func NewBcryptVerifier(cost int) (*BcryptVerifier, error) {
	v := &BcryptVerifier{cost: cost}
	dummy, err := v.Hash("not-a-real-password")
	if err != nil {
		return nil, err
	}
	v.dummy = []byte(dummy)
	return v, nil
}

func (v *BcryptVerifier) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password must not be empty")
	}
	return HashPassword(plain, v.cost)
}

func (v *BcryptVerifier) Verify(plain, digest string) bool {
	if digest == "" {
		_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(plain))
		return false
	}
	return ComparePassword(digest, plain) == nil
}
