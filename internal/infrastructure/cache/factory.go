package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory builds the Redis-backed stores of the service, falling back
// to in-memory implementations when Redis is unreachable and not required.
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	dial                  func(context.Context, config.RedisConfig) (*redis.Client, error)

	once    sync.Once
	client  *redis.Client
	dialErr error
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores
// when Redis is unavailable. Default is !cfg.Required.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: !cfg.Required,
		dial:                  NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client connects to Redis once and returns the shared client
func (f *StoreFactory) Client(ctx context.Context) (*redis.Client, error) {
	f.once.Do(func() {
		f.client, f.dialErr = f.dial(ctx, f.redisConfig)
	})
	return f.client, f.dialErr
}

func (f *StoreFactory) fallback(what string, err error) error {
	if !f.allowInMemoryFallback {
		return fmt.Errorf("Redis required for %s but unavailable: %w", what, err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory "+what+". "+
		"State will not be shared between instances.",
		zap.Error(err),
	)
	return nil
}

// CreateIdempotencyStore returns a Redis store, or an in-memory one when
// fallback is allowed
func (f *StoreFactory) CreateIdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	client, err := f.Client(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, ""), nil
	}
	if ferr := f.fallback("idempotency store", err); ferr != nil {
		return nil, ferr
	}
	return NewInMemoryIdempotencyStore(), nil
}

// CreateTokenBlacklist returns a Redis blacklist, or an in-memory one when
// fallback is allowed
func (f *StoreFactory) CreateTokenBlacklist(ctx context.Context) (auth.TokenBlacklist, error) {
	client, err := f.Client(ctx)
	if err == nil {
		f.logger.Info("using Redis token blacklist")
		return auth.NewRedisTokenBlacklist(client), nil
	}
	if ferr := f.fallback("token blacklist", err); ferr != nil {
		return nil, ferr
	}
	return auth.NewInMemoryTokenBlacklist(), nil
}

// Close closes the shared Redis client if one was opened
func (f *StoreFactory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
