package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/your-org/mediameta/internal/recorder"
	"github.com/your-org/mediameta/pkg/config"
	"github.com/your-org/mediameta/pkg/logger"
	"github.com/your-org/mediameta/pkg/storage/metastore"
	"github.com/your-org/mediameta/pkg/tracing"
)

// handler keeps one recorder for the lifetime of the execution environment.
type handler struct {
	recorder *recorder.Recorder
	logger   *zap.Logger
}

func (h *handler) handle(ctx context.Context, payload json.RawMessage) (string, error) {
	logr := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logr = logr.With(zap.String("aws_request_id", lc.AwsRequestID))
	}

	id, err := h.recorder.HandlePayload(ctx, payload)
	if err != nil {
		logr.Error("upload event not recorded", zap.Error(err))
		return "", err
	}
	return id, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
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

	h := &handler{
		recorder: recorder.New(recorder.Params{Store: store, Logger: logr}),
		logger:   logr,
	}

	lambda.StartWithOptions(h.handle, lambda.WithEnableSIGTERM(func() {
		_ = traceShutdown(context.Background())
		_ = store.Close()
		_ = logr.Sync()
	}))
}
