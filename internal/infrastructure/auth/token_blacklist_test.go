package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_Revoke(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	ok, err := blacklist.Revoke(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_RevokeIsSingleUse(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	first, err := blacklist.Revoke(ctx, "jti", time.Hour)
	require.NoError(t, err)
	second, err := blacklist.Revoke(ctx, "jti", time.Hour)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestInMemoryTokenBlacklist_Expiration(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()
	now := time.Now()
	blacklist.now = func() time.Time { return now }

	_, err := blacklist.Revoke(ctx, "jti-expire", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	revoked, err := blacklist.IsBlacklisted(ctx, "jti-expire")
	require.NoError(t, err)
	assert.False(t, revoked)

	ok, err := blacklist.Revoke(ctx, "jti-expire", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired entry can be revoked again")
}

func TestInMemoryTokenBlacklist_SweepsExpired(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()
	now := time.Now()
	blacklist.now = func() time.Time { return now }

	_, _ = blacklist.Revoke(ctx, "old", time.Second)
	now = now.Add(time.Minute)
	_, _ = blacklist.Revoke(ctx, "new", time.Hour)

	blacklist.mu.Lock()
	defer blacklist.mu.Unlock()
	assert.Len(t, blacklist.entries, 1)
	assert.Contains(t, blacklist.entries, "new")
}
