package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// IdempotencyStoreFactory picks the idempotency store for the configured environment
type IdempotencyStoreFactory struct {
	cfg           config.RedisConfig
	logger        *zap.Logger
	allowFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Production disables it.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowFallback = allow
	}
}

func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:           cfg,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when a host is configured and reachable,
// otherwise the in-memory store if fallback is allowed
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if f.cfg.Host == "" {
		f.logger.Info("Redis not configured, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	store, err := f.createRedisStore(ctx)
	if err == nil {
		f.logger.Info("Using Redis idempotency store", zap.String("addr", f.cfg.Addr()))
		return store, nil
	}
	if !f.allowFallback {
		return nil, err
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.String("addr", f.cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(0), nil
}

func (f *IdempotencyStoreFactory) createRedisStore(ctx context.Context) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.cfg.Addr(),
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", f.cfg.Addr(), err)
	}
	return NewRedisIdempotencyStore(client, ""), nil
}
