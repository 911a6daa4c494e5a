package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohamedammareid/finance/internal/config"
)

// SaramaSyncProducer sends one message at a time and waits for the broker
// acknowledgement.
type SaramaSyncProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSyncProducer(cfg *config.Config) (*SaramaSyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, config)
	if err != nil {
		return nil, err
	}
	return &SaramaSyncProducer{
		producer: producer,
		topic:    cfg.KafkaTopicTrades,
	}, nil
}

// SendMessage publishes value keyed by key. sarama has no context support, so
// ctx is only checked before sending.
func (p *SaramaSyncProducer) SendMessage(ctx context.Context, key string, value []byte) (int32, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	return p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now().UTC(),
	})
}

func (p *SaramaSyncProducer) Close() error {
	return p.producer.Close()
}
