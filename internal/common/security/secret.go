package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminGate checks the static administrative shared secret.
// The secret may be configured either in clear or as a bcrypt hash;
// only the hash is kept in memory.
type AdminGate struct {
	hash string
}

func NewAdminGate(secret string) (*AdminGate, error) {
	if secret == "" {
		return nil, errors.New("admin secret must not be empty")
	}
	if isBcryptHash(secret) {
		return &AdminGate{hash: secret}, nil
	}
	hash, err := HashPassword(secret)
	if err != nil {
		return nil, err
	}
	return &AdminGate{hash: hash}, nil
}

func (g *AdminGate) Allow(candidate string) bool {
	if g == nil || candidate == "" {
		return false
	}
	return CheckPasswordHash(candidate, g.hash)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
