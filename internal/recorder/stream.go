package recorder

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/mediameta/pkg/kafka"
	"github.com/your-org/mediameta/pkg/storage/objectstore"
)

// Dead-letter headers set on notifications that could not be recorded.
const (
	HeaderErrorKind = "error_kind"
	HeaderError     = "error"

	ErrorKindMalformed  = "malformed"
	ErrorKindStoreWrite = "store_write"
)

// KafkaHandler records every consumed notification. Failed messages are
// forwarded to dlq and then committed. Without a dlq, malformed messages
// are dropped and store failures stop the consumer uncommitted.
func (r *Recorder) KafkaHandler(dlq kafka.Publisher) kafka.MessageHandler {
	return func(ctx context.Context, msg kafkago.Message) error {
		id, err := r.HandlePayload(ctx, msg.Value)
		if err == nil {
			r.logger.Debug("notification consumed",
				zap.String("id", id),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		kind := ErrorKindStoreWrite
		if IsMalformed(err) {
			kind = ErrorKindMalformed
		}

		if dlq == nil {
			if kind == ErrorKindMalformed {
				return nil
			}
			return err
		}

		headers := map[string]string{
			HeaderErrorKind: kind,
			HeaderError:     err.Error(),
		}
		if dlErr := dlq.DeadLetter(ctx, msg, headers); dlErr != nil {
			return fmt.Errorf("dead-letter notification: %w", dlErr)
		}

		r.logger.Warn("notification dead-lettered",
			zap.String("error_kind", kind),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
}

// ConsumeNotifications records each object from a bucket listener until
// the channel closes or ctx is done. Every record is handled as its own
// event; failures are logged and skipped since the listener cannot redeliver.
func (r *Recorder) ConsumeNotifications(ctx context.Context, notifications <-chan objectstore.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n.Err != nil {
				return fmt.Errorf("bucket notification: %w", n.Err)
			}

			for _, rec := range n.Records {
				event := UploadEvent{Records: []UploadRecord{{
					Bucket: rec.Bucket,
					Key:    rec.Key,
					Size:   rec.Size,
				}}}
				if _, err := r.Handle(ctx, event); err != nil {
					r.logger.Error("bucket notification not recorded",
						zap.String("bucket", rec.Bucket),
						zap.String("key", rec.Key),
						zap.Error(err),
					)
				}
			}
		}
	}
}
