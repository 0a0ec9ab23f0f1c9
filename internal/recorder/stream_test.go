package recorder

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/your-org/mediameta/pkg/storage/metastore"
	"github.com/your-org/mediameta/pkg/storage/objectstore"
)

type fakeDLQ struct {
	msgs    []kafkago.Message
	headers []map[string]string
	err     error
}

func (f *fakeDLQ) DeadLetter(ctx context.Context, msg kafkago.Message, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	f.headers = append(f.headers, headers)
	return nil
}

func TestKafkaHandler(t *testing.T) {
	tests := []struct {
		name     string
		store    Writer
		value    []byte
		wantKind string
	}{
		{"recorded", metastore.NewMemoryStore(), notificationJSON("b", "a.mp3", 2048), ""},
		{"malformed", metastore.NewMemoryStore(), []byte(`{"EventName":"s3:ObjectCreated:Put"}`), ErrorKindMalformed},
		{"store failure", &failingStore{err: errors.New("timeout")}, notificationJSON("b", "a.mp3", 2048), ErrorKindStoreWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlq := &fakeDLQ{}
			handle := New(Params{Store: tt.store}).KafkaHandler(dlq)

			msg := kafkago.Message{Topic: "minio-events", Offset: 9, Value: tt.value}
			if err := handle(t.Context(), msg); err != nil {
				t.Fatalf("handler must absorb the failure, got %v", err)
			}

			if tt.wantKind == "" {
				if len(dlq.msgs) != 0 {
					t.Errorf("expected no dead letters, got %d", len(dlq.msgs))
				}
				return
			}
			if len(dlq.msgs) != 1 {
				t.Fatalf("expected 1 dead letter, got %d", len(dlq.msgs))
			}
			if got := dlq.headers[0][HeaderErrorKind]; got != tt.wantKind {
				t.Errorf("expected error kind %q, got %q", tt.wantKind, got)
			}
			if dlq.headers[0][HeaderError] == "" {
				t.Error("expected error header")
			}
			if string(dlq.msgs[0].Value) != string(tt.value) {
				t.Error("dead letter must carry the original payload")
			}
		})
	}
}

func TestKafkaHandler_DeadLetterFailure(t *testing.T) {
	dlq := &fakeDLQ{err: errors.New("broker down")}
	handle := New(Params{Store: metastore.NewMemoryStore()}).KafkaHandler(dlq)

	err := handle(t.Context(), kafkago.Message{Value: []byte(`{}`)})
	if err == nil {
		t.Fatal("expected error when dead-lettering fails")
	}
}

func TestKafkaHandler_NoDeadLetterTopic(t *testing.T) {
	handle := New(Params{Store: &failingStore{err: errors.New("timeout")}}).KafkaHandler(nil)

	if err := handle(t.Context(), kafkago.Message{Value: []byte(`{}`)}); err != nil {
		t.Errorf("malformed message should be dropped, got %v", err)
	}

	err := handle(t.Context(), kafkago.Message{Value: notificationJSON("b", "k", 1)})
	if !IsStoreWrite(err) {
		t.Errorf("store failure should stop the consumer, got %v", err)
	}
}

func TestConsumeNotifications(t *testing.T) {
	store := metastore.NewMemoryStore()
	rec := New(Params{Store: store})

	ch := make(chan objectstore.Notification, 2)
	ch <- objectstore.Notification{Records: []objectstore.ObjectCreated{
		{Bucket: "uploads", Key: "videos/clip.mp4", Size: 5242880},
		{Bucket: "uploads", Key: "", Size: 1},
		{Bucket: "uploads", Key: "README", Size: 1024},
	}}
	close(ch)

	if err := rec.ConsumeNotifications(t.Context(), ch); err != nil {
		t.Fatal(err)
	}

	items := store.List()
	if len(items) != 2 {
		t.Fatalf("expected 2 records, got %+v", items)
	}
	if items[0].ID != "uploads/README" || items[0].FileType != "None" {
		t.Errorf("unexpected record %+v", items[0])
	}
	if items[1].ID != "uploads/videos/clip.mp4" || items[1].SizeKiB != 5120 {
		t.Errorf("unexpected record %+v", items[1])
	}
}

func TestConsumeNotifications_ListenerError(t *testing.T) {
	rec := New(Params{Store: metastore.NewMemoryStore()})

	boom := errors.New("stream closed")
	ch := make(chan objectstore.Notification, 1)
	ch <- objectstore.Notification{Err: boom}

	if err := rec.ConsumeNotifications(t.Context(), ch); !errors.Is(err, boom) {
		t.Fatalf("expected listener error, got %v", err)
	}
}
