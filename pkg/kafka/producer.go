package kafka

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Dead-letter header names.
const (
	HeaderDeadLetterID    = "dead_letter_id"
	HeaderSourceTopic     = "source_topic"
	HeaderSourcePartition = "source_partition"
	HeaderSourceOffset    = "source_offset"
)

// Publisher forwards a message that could not be processed.
type Publisher interface {
	DeadLetter(ctx context.Context, msg kafkago.Message, headers map[string]string) error
}

// Producer writes to a single dead-letter topic.
type Producer struct {
	writer *kafkago.Writer
}

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	Compression  kafkago.Compression
	RequiredAcks kafkago.RequiredAcks
	MaxAttempts  int
}

// NewProducer constructs a Producer from the given configuration.
func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: cfg.RequiredAcks,
			Compression:  cfg.Compression,
			MaxAttempts:  cfg.MaxAttempts,
		},
	}
}

// DeadLetter republishes msg unchanged with its original headers, the
// extra headers and its source coordinates appended.
func (p *Producer) DeadLetter(ctx context.Context, msg kafkago.Message, headers map[string]string) error {
	return p.writer.WriteMessages(ctx, deadLetterMessage(msg, headers))
}

func deadLetterMessage(msg kafkago.Message, headers map[string]string) kafkago.Message {
	out := kafkago.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Time:    time.Now().UTC(),
		Headers: slices.Clone(msg.Headers),
	}

	extra := map[string]string{
		HeaderDeadLetterID:    uuid.NewString(),
		HeaderSourceTopic:     msg.Topic,
		HeaderSourcePartition: strconv.Itoa(msg.Partition),
		HeaderSourceOffset:    strconv.FormatInt(msg.Offset, 10),
	}
	for k, v := range headers {
		extra[k] = v
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out.Headers = append(out.Headers, kafkago.Header{Key: k, Value: []byte(extra[k])})
	}
	return out
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close(ctx context.Context) error {
	return p.writer.Close()
}

// CompressionFromString maps textual codec to kafka-go value.
func CompressionFromString(name string) kafkago.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none", "":
		return 0
	default:
		return kafkago.Snappy
	}
}
