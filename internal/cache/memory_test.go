package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetDelIsSingleUse(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	key := PasswordResetKey("abc")
	require.NoError(t, c.Set(ctx, key, []byte("42"), time.Minute))

	val, err := c.GetDel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), val)

	_, err = c.GetDel(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := RevokedSessionKey("jti-1")
	require.NoError(t, c.Set(ctx, key, []byte{1}, time.Minute))
	ok, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = c.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = c.GetDel(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_NonPositiveTTLRemoves(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	key := PasswordResetKey("gone")
	require.NoError(t, c.Set(ctx, key, []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, key, []byte("1"), 0))

	ok, _ := c.Exists(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Purge(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, PasswordResetKey("a"), []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, RevokedSessionKey("b"), []byte{1}, time.Hour))

	now = now.Add(time.Minute)
	c.purge()

	assert.Equal(t, 1, c.Len())
	ok, _ := c.Exists(ctx, RevokedSessionKey("b"))
	assert.True(t, ok)
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.NoError(t, c.Ping(context.Background()))
}
