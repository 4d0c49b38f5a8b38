package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable. Otherwise it returns an in-memory store swept every
// sweepInterval, unless the fallback is disabled in configuration.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, sweepInterval time.Duration, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(sweepInterval), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("Using Redis idempotency store",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port))
		return store, nil
	}
	if !cfg.AllowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicate recoveries are only detected per instance",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(sweepInterval), nil
}
