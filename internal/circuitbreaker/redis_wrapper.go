package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisWrapper guards a Redis client with a breaker. A missing key (redis.Nil)
// is a normal answer and never counts as a failure.
type RedisWrapper struct {
	client *redis.Client
	cb     *Breaker
}

func NewRedisWrapper(client *redis.Client, name string, logger *zap.Logger) *RedisWrapper {
	cfg := Instrument(FromEnv("CB_CACHE", DefaultConfig()))
	return &RedisWrapper{client: client, cb: New(name, cfg, logger)}
}

func (rw *RedisWrapper) Ping(ctx context.Context) error {
	err := rw.cb.Execute(func() error {
		return rw.client.Ping(ctx).Err()
	})
	recordRequest(rw.cb.Name(), rw.cb.State(), err == nil)
	return err
}

// Get returns the stored bytes; redis.Nil is returned as-is for a miss
func (rw *RedisWrapper) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		val    []byte
		getErr error
	)
	err := rw.cb.Execute(func() error {
		val, getErr = rw.client.Get(ctx, key).Bytes()
		if errors.Is(getErr, redis.Nil) {
			return nil
		}
		return getErr
	})
	recordRequest(rw.cb.Name(), rw.cb.State(), err == nil)
	if err != nil {
		return nil, err
	}
	return val, getErr
}

func (rw *RedisWrapper) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := rw.cb.Execute(func() error {
		return rw.client.Set(ctx, key, value, ttl).Err()
	})
	recordRequest(rw.cb.Name(), rw.cb.State(), err == nil)
	return err
}

func (rw *RedisWrapper) Close() error {
	return rw.client.Close()
}

// IsOpen reports whether calls are currently short-circuited
func (rw *RedisWrapper) IsOpen() bool {
	return rw.cb.State() == StateOpen
}
