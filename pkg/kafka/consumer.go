// Package kafka carries injection events and corpus-change notices between
// injector instances over segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
)

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// MessageHandler processes one message. A non-nil error leaves the offset
// uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

type ConsumerOption func(*kafka.ReaderConfig)

// WithGroupID overrides the configured consumer group. Corpus listeners use
// one group per instance so every replica sees every notice.
func WithGroupID(groupID string) ConsumerOption {
	return func(rc *kafka.ReaderConfig) {
		rc.GroupID = groupID
	}
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	}
	for _, opt := range opts {
		opt(&rc)
	}
	return &Consumer{
		reader:  kafka.NewReader(rc),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", rc.GroupID),
	}
}

// Start consumes until ctx is cancelled, then closes the reader. Fetch
// errors back off exponentially up to five seconds.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")

	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Warn("fetch failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minFetchBackoff
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		log.Error("handler failed, offset not committed", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		log.Error("commit failed", "error", err)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	return min(2*d, maxFetchBackoff)
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
