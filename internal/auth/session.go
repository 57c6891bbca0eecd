package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/models"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")
)

// Claims are the JWT claims of a login session
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return uint(id), nil
}

// SessionManager issues, verifies and revokes HS256 session tokens. Revoked
// token ids are kept in the cache until the token would have expired anyway.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	store  cache.Cache
	now    func() time.Time
}

// NewSessionManager creates a session manager
func NewSessionManager(secret string, ttl time.Duration, store cache.Cache) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

// TTL returns the session lifetime
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the user
func (m *SessionManager) Issue(user *models.User) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies a token and checks it has not been revoked
func (m *SessionManager) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrInvalidSession)
	}

	revoked, err := m.store.Exists(ctx, cache.RevokedSessionKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// Revoke marks the session as logged out for the rest of its lifetime
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := m.store.Set(ctx, cache.RevokedSessionKey(claims.ID), []byte{1}, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
