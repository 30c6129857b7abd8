package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultKeyPrefix = "vision-grader:strategy:"

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL of zero keeps strategies until invalidated.
	TTL time.Duration
}

// RedisCache persists strategies so a verified endpoint survives restarts.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger.Info("Strategy cache connected to redis", zap.String("addr", cfg.Addr), zap.String("prefix", prefix))

	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "strategy_cache")),
	}, nil
}

func (c *RedisCache) key(slot Slot) string {
	return c.prefix + string(slot)
}

func (c *RedisCache) Get(ctx context.Context, slot Slot) (*Strategy, error) {
	val, err := c.client.Get(ctx, c.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("strategy get failed: %w", err)
	}

	var s Strategy
	if err := json.Unmarshal(val, &s); err != nil {
		// unreadable entries are dropped rather than served
		c.logger.Warn("Discarding corrupt strategy", zap.String("slot", string(slot)), zap.Error(err))
		_ = c.client.Del(ctx, c.key(slot)).Err()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (c *RedisCache) Put(ctx context.Context, slot Slot, s *Strategy) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}
	if err := c.client.Set(ctx, c.key(slot), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("strategy put failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, slot Slot) error {
	if err := c.client.Del(ctx, c.key(slot)).Err(); err != nil {
		return fmt.Errorf("strategy invalidate failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Reset(ctx context.Context) error {
	keys := make([]string, 0, len(Slots))
	for _, slot := range Slots {
		keys = append(keys, c.key(slot))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("strategy reset failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
