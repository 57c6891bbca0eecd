package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/otcheredev/hospital-records/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a hasher; cost falls back to bcrypt.DefaultCost when out of range
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash generates a bcrypt hash of the password
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Check compares a stored hash with a plaintext candidate. Unusable hashes never match.
func (h *Hasher) Check(password, hashed string) bool {
	if hashed == "" || strings.HasPrefix(hashed, models.UnusablePasswordPrefix) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// Unusable returns a stored value that no password can verify against
func Unusable() string {
	return models.UnusablePasswordPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
