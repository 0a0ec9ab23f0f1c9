package recorder

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/mediameta/pkg/metrics"
	"github.com/your-org/mediameta/pkg/storage/metastore"
)

const tracerName = "github.com/your-org/mediameta/internal/recorder"

// Writer is the part of a metadata store the recorder writes through.
type Writer interface {
	Put(ctx context.Context, item metastore.Item) error
}

// Recorder turns upload notifications into metadata records. It keeps no
// state between calls and is safe for concurrent use.
type Recorder struct {
	store   Writer
	logger  *zap.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

type Params struct {
	Store   Writer
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// New constructs a Recorder. Logger and Metrics are optional.
func New(p Params) *Recorder {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := p.Metrics
	if m == nil {
		m = metrics.NewRecorder(nil)
	}

	return &Recorder{
		store:   p.Store,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
}

// HandlePayload parses a raw notification and records its first object.
func (r *Recorder) HandlePayload(ctx context.Context, payload []byte) (string, error) {
	event, err := ParseEvent(payload)
	if err != nil {
		r.metrics.MalformedEvents.Inc()
		r.logger.Warn("malformed notification", zap.Error(err))
		return "", err
	}
	return r.Handle(ctx, event)
}

// Handle extracts metadata from event and upserts the record.
func (r *Recorder) Handle(ctx context.Context, event UploadEvent) (string, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.handle")
	defer span.End()

	meta, err := ExtractMetadata(event)
	if err != nil {
		r.metrics.MalformedEvents.Inc()
		r.logger.Warn("malformed upload event", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event")
		return "", err
	}

	r.logger.Info("file uploaded",
		zap.String("bucket", meta.Bucket),
		zap.String("key", meta.Key),
	)

	id, err := r.RecordMetadata(ctx, meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		return "", err
	}
	return id, nil
}

// RecordMetadata upserts one record for meta and returns its id.
func (r *Recorder) RecordMetadata(ctx context.Context, meta Metadata) (string, error) {
	item := metastore.Item{
		ID:       RecordID(meta.Bucket, meta.Key),
		FileType: meta.FileType,
		SizeKiB:  KiB(meta.SizeBytes),
	}

	ctx, span := r.tracer.Start(ctx, "recorder.record", trace.WithAttributes(
		attribute.String("record.id", item.ID),
		attribute.String("file.type", item.FileType),
		attribute.Float64("file.size_kib", item.SizeKiB),
	))
	defer span.End()

	start := time.Now()
	err := r.store.Put(ctx, item)
	r.metrics.StoreWriteTime.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.StoreWriteErrors.Inc()
		r.logger.Error("metadata write failed", zap.String("id", item.ID), zap.Error(err))
		return "", &StoreWriteError{ID: item.ID, Err: err}
	}

	r.metrics.RecordsWritten.Inc()
	r.logger.Info("metadata recorded",
		zap.String("id", item.ID),
		zap.String("filetype", item.FileType),
		zap.Float64("size_kib", item.SizeKiB),
	)
	return item.ID, nil
}

// IsMalformed reports whether err is, or wraps, a MalformedEventError.
func IsMalformed(err error) bool {
	var target *MalformedEventError
	return errors.As(err, &target)
}

// IsStoreWrite reports whether err is, or wraps, a StoreWriteError.
func IsStoreWrite(err error) bool {
	var target *StoreWriteError
	return errors.As(err, &target)
}
