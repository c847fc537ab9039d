package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "folio:usage:"

// RedisConfig holds connection settings for Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ParseRedisURL reads a redis:// or rediss:// URL into a RedisConfig.
func ParseRedisURL(rawURL string) (RedisConfig, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid redis url: %w", err)
	}
	return RedisConfig{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}, nil
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStore is a Store shared by every server instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore whose claims expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+id.String(), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim delivery %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, keyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("release delivery %s: %w", id, err)
	}
	return nil
}
