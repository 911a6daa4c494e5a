package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedammareid/finance/internal/config"
)

type RedisPubsubClient struct {
	client *redis.Client
}

func NewRedisPubsubClient(ctx context.Context, cfg *config.Config) (*RedisPubsubClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisPubsubAddr,
		Username: cfg.RedisPubsubUser,
		Password: cfg.RedisPubsubPw,
	})

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisPubsubClient{
		client: client,
	}, nil
}

func (r *RedisPubsubClient) Publish(ctx context.Context, channel string, message any) error {
	return r.client.Publish(ctx, channel, message).Err()
}

func (r *RedisPubsubClient) Close() error {
	return r.client.Close()
}
