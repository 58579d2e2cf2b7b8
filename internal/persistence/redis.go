package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Locker implements SETNX-based run locking so only one alert batch sends at
// a time across instances.
type Locker struct {
	client *redis.Client
}

// NewLocker builds a lock helper; returns nil when redis is unavailable.
func (r *Redis) NewLocker() *Locker {
	if r == nil || r.Client == nil {
		return nil
	}
	return &Locker{client: r.Client}
}

// Acquire takes the lock for ttl; false when another holder owns it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
}

// Release frees the lock.
func (l *Locker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// StoreLastAlertRun caches the serialized result of the latest alert run for
// operational inspection. Best effort.
func (r *Redis) StoreLastAlertRun(ctx context.Context, payload []byte) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Set(ctx, "workorders:alerts:last-run", payload, 30*24*time.Hour).Err()
}

// LastAlertRun returns the cached result of the latest alert run.
func (r *Redis) LastAlertRun(ctx context.Context) ([]byte, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	return r.Client.Get(ctx, "workorders:alerts:last-run").Bytes()
}
