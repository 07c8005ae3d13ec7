package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func unreachable(calls *int) func(context.Context, config.RedisConfig) (*redis.Client, error) {
	return func(context.Context, config.RedisConfig) (*redis.Client, error) {
		*calls++
		return nil, errors.New("connection refused")
	}
}

func TestStoreFactory_FallsBackWhenRedisOptional(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	calls := 0
	f := NewStoreFactory(config.RedisConfig{Host: "localhost", Port: 6379}, WithLogger(zap.New(core)))
	f.dial = unreachable(&calls)

	store, err := f.CreateIdempotencyStore(context.Background())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)

	blacklist, err := f.CreateTokenBlacklist(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &auth.InMemoryTokenBlacklist{}, blacklist)

	assert.Equal(t, 1, calls, "Redis is dialed once")
	assert.Equal(t, 2, recorded.Len())
	assert.NoError(t, f.Close())
}

func TestStoreFactory_FailsWhenRedisRequired(t *testing.T) {
	calls := 0
	f := NewStoreFactory(config.RedisConfig{Required: true})
	f.dial = unreachable(&calls)

	_, err := f.CreateIdempotencyStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idempotency store")

	_, err = f.CreateTokenBlacklist(context.Background())
	require.Error(t, err)
}

func TestStoreFactory_FallbackOptionOverridesConfig(t *testing.T) {
	calls := 0
	f := NewStoreFactory(config.RedisConfig{Required: true}, WithInMemoryFallback(true))
	f.dial = unreachable(&calls)

	store, err := f.CreateIdempotencyStore(context.Background())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStoreFactory_UsesRedisWhenReachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	f := NewStoreFactory(config.RedisConfig{})
	f.dial = func(context.Context, config.RedisConfig) (*redis.Client, error) {
		return client, nil
	}

	store, err := f.CreateIdempotencyStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &RedisIdempotencyStore{}, store)

	blacklist, err := f.CreateTokenBlacklist(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &auth.RedisTokenBlacklist{}, blacklist)

	assert.NoError(t, f.Close())
}
