// Package kafka wraps the franz-go client with the small producer
// surface the portal needs.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewProducer(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka brokers: %w", err)
	}

	p := &Producer{client: client, topic: topic, logger: logger}
	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Producer) ensureTopic(ctx context.Context) error {
	admin := kadm.NewClient(p.client)
	_, err := admin.CreateTopic(ctx, 1, 1, nil, p.topic)
	if err != nil && !kerr.IsRetriable(err) {
		if ke, ok := err.(*kerr.Error); ok && ke.Code == kerr.TopicAlreadyExists.Code {
			return nil
		}
		return fmt.Errorf("create topic %q: %w", p.topic, err)
	}
	return nil
}

// Publish produces one record synchronously. Records sharing a key land
// on the same partition, preserving per-key ordering.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	record := &kgo.Record{Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %q: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
