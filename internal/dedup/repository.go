package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"soxguard/internal/config"
	"soxguard/internal/logger"
	"soxguard/pkg/circuitbreaker"
)

type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type RedisRepository struct {
	client redis.UniversalClient
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return ok, nil
}

func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// CircuitBreakerRepository fails fast while Redis is unhealthy so the
// on_redis_error fallback applies without waiting on a dead connection.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig, log logger.Logger) *CircuitBreakerRepository {
	cbConfig := circuitbreaker.DefaultConfig("redis_dedup")
	if cfg.MaxRequests > 0 {
		cbConfig = circuitbreaker.FromSettings("redis_dedup",
			cfg.MaxRequests, cfg.Interval, cfg.Timeout, cfg.FailureRatio, cfg.MinRequests)
	}
	cbConfig.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnw("Dedup circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}

	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})
	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			return false, fmt.Errorf("circuit breaker is open for redis_dedup: %w", err)
		}
		return false, err
	}

	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("repository returned invalid result type")
	}
	return ok, nil
}

func (r *CircuitBreakerRepository) Delete(ctx context.Context, key string) error {
	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, r.repo.Delete(ctx, key)
	})
	if err != nil && circuitbreaker.IsOpenError(err) {
		return fmt.Errorf("circuit breaker is open for redis_dedup: %w", err)
	}
	return err
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	return r.cb.IsOpen()
}
