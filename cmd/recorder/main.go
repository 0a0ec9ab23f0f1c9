package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/mediameta/internal/recorder"
	"github.com/your-org/mediameta/pkg/config"
	"github.com/your-org/mediameta/pkg/kafka"
	"github.com/your-org/mediameta/pkg/logger"
	"github.com/your-org/mediameta/pkg/metrics"
	"github.com/your-org/mediameta/pkg/storage/metastore"
	"github.com/your-org/mediameta/pkg/storage/objectstore"
	"github.com/your-org/mediameta/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel, logger.Options{File: cfg.App.LogFile})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     tracing.ParseAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := metastore.New(ctx, metastore.Config{
		Provider:    cfg.Store.Provider,
		Table:       cfg.Store.Table,
		Region:      cfg.Store.Region,
		Endpoint:    cfg.Store.Endpoint,
		MaxAttempts: cfg.Store.MaxAttempts,
		DSN:         cfg.Store.DSN,
		RedisURL:    cfg.Store.RedisURL,
		ConsulAddr:  cfg.Store.ConsulAddr,
		KeyPrefix:   cfg.Store.KeyPrefix,
	})
	if err != nil {
		logr.Fatal("init metadata store", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	rec := recorder.New(recorder.Params{
		Store:   store,
		Logger:  logr,
		Metrics: metrics.NewRecorder(registry),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Metrics.Addr, registry)
	})

	if cfg.Sources.Webhook {
		g.Go(func() error {
			return serveWebhook(gctx, cfg, rec, logr)
		})
	}

	if cfg.Sources.Kafka {
		g.Go(func() error {
			return consumeKafka(gctx, cfg, rec, logr)
		})
	}

	if cfg.Sources.Bucket {
		g.Go(func() error {
			return listenBucket(gctx, cfg, rec, logr)
		})
	}

	logr.Info("metadata recorder starting",
		zap.String("store", cfg.Store.Provider),
		zap.Bool("webhook", cfg.Sources.Webhook),
		zap.Bool("kafka", cfg.Sources.Kafka),
		zap.Bool("bucket", cfg.Sources.Bucket),
	)
	if err := g.Wait(); err != nil {
		logr.Fatal("metadata recorder stopped", zap.Error(err))
	}
}

func serveWebhook(ctx context.Context, cfg *config.Config, rec *recorder.Recorder, logr *zap.Logger) error {
	handler := recorder.NewHTTPHandler(rec, logr, recorder.HTTPOptions{
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		AuthToken:    cfg.Webhook.AuthToken,
		RateLimit:    cfg.Webhook.RateLimit,
		RateBurst:    cfg.Webhook.RateBurst,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("webhook listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func consumeKafka(ctx context.Context, cfg *config.Config, rec *recorder.Recorder, logr *zap.Logger) error {
	var dlq kafka.Publisher
	if cfg.Kafka.DeadLetterTopic != "" {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.DeadLetterTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		defer producer.Close(context.Background()) //nolint:errcheck
		dlq = producer
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.NotificationTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer consumer.Close() //nolint:errcheck

	logr.Info("consuming notifications",
		zap.String("topic", cfg.Kafka.NotificationTopic),
		zap.String("group", cfg.Kafka.GroupID),
	)
	return consumer.Run(ctx, rec.KafkaHandler(dlq))
}

func listenBucket(ctx context.Context, cfg *config.Config, rec *recorder.Recorder, logr *zap.Logger) error {
	listener, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Prefix:    cfg.Storage.Prefix,
		Suffix:    cfg.Storage.Suffix,
	})
	if err != nil {
		return err
	}
	defer listener.Close() //nolint:errcheck

	logr.Info("listening for bucket notifications", zap.String("bucket", cfg.Storage.Bucket))
	return rec.ConsumeNotifications(ctx, listener.Listen(ctx))
}
