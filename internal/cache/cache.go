package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Cache is the short-lived key/value store behind session revocation and
// password-reset tokens
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetDel returns the value and removes the key in one step
	GetDel(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Key prefixes for the token store
const (
	revokedSessionPrefix = "session:revoked:"
	passwordResetPrefix  = "pwreset:"
)

// RevokedSessionKey is the key marking a session id as logged out
func RevokedSessionKey(jti string) string {
	return revokedSessionPrefix + jti
}

// PasswordResetKey is the key holding the user id a reset token belongs to
func PasswordResetKey(token string) string {
	return passwordResetPrefix + token
}
