package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedammareid/finance/internal/config"
)

// RedisSessionClient is the key-value client backing login sessions.
type RedisSessionClient struct {
	client *redis.Client
}

func NewRedisSessionClient(ctx context.Context, cfg *config.Config) (*RedisSessionClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisSessionAddr,
		Username: cfg.RedisSessionUser,
		Password: cfg.RedisSessionPw,
		DB:       cfg.RedisSessionDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisSessionClient{
		client: client,
	}, nil
}

func (r *RedisSessionClient) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	return r.client.Set(ctx, key, value, exp).Err()
}

func (r *RedisSessionClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisSessionClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisSessionClient) Close() error {
	return r.client.Close()
}
