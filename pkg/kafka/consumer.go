package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageHandler processes one fetched message. A nil return commits it.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// MessageReader is the subset of kafka-go Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads a topic as part of a consumer group and commits each
// message only after its handler succeeded.
type Consumer struct {
	reader MessageReader
}

// NewConsumer constructs a Consumer from the given configuration.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	return NewConsumerWithReader(kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}))
}

func NewConsumerWithReader(reader MessageReader) *Consumer {
	return &Consumer{reader: reader}
}

// Run fetches messages until ctx is done or the handler fails. A handler
// error stops the loop without committing, so the message is redelivered.
func (c *Consumer) Run(ctx context.Context, handle MessageHandler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := handle(ctx, m); err != nil {
			return fmt.Errorf("handle message %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Header returns the value of the first header named key.
func Header(msg kafkago.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
