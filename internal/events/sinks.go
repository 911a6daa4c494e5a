package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohamedammareid/finance/internal/utils"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

// KafkaPublisher writes events as JSON keyed by symbol, so all trades in one
// symbol land on the same partition.
type KafkaPublisher struct {
	producer interfaces.KafkaProducer
}

func NewKafkaPublisher(producer interfaces.KafkaProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, event trading.TradeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return utils.Permanent(fmt.Errorf("marshal event: %w", err))
	}
	_, _, err = p.producer.SendMessage(ctx, event.Trade.Symbol, body)
	return err
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }

// RedisPublisher publishes events on a redis pubsub channel.
type RedisPublisher struct {
	client  interfaces.PubsubClient
	channel string
}

func NewRedisPublisher(client interfaces.PubsubClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, event trading.TradeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return utils.Permanent(fmt.Errorf("marshal event: %w", err))
	}
	return p.client.Publish(ctx, p.channel, string(body))
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
