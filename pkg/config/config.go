package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures the full runtime configuration for the metadata recorder.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Webhook WebhookConfig
	Sources SourcesConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Store   StoreConfig
	Tracing TracingConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"mediameta-recorder"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"APP_LOG_FILE"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type WebhookConfig struct {
	MaxBodyBytes int64   `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"1048576"`
	AuthToken    string  `env:"WEBHOOK_AUTH_TOKEN"`
	RateLimit    float64 `env:"WEBHOOK_RATE_LIMIT" envDefault:"0"`
	RateBurst    int     `env:"WEBHOOK_RATE_BURST" envDefault:"50"`
}

// SourcesConfig toggles the notification transports run by cmd/recorder.
type SourcesConfig struct {
	Webhook bool `env:"SOURCE_WEBHOOK" envDefault:"true"`
	Kafka   bool `env:"SOURCE_KAFKA" envDefault:"false"`
	Bucket  bool `env:"SOURCE_BUCKET" envDefault:"false"`
}

type KafkaConfig struct {
	Brokers           []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	NotificationTopic string        `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"mediameta.notifications"`
	GroupID           string        `env:"KAFKA_GROUP_ID" envDefault:"mediameta-recorder"`
	DeadLetterTopic   string        `env:"KAFKA_DEAD_LETTER_TOPIC" envDefault:"mediameta.notifications.dlq"`
	Retries           int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec  string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize         int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout      time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
}

// StorageConfig points at the object store whose bucket notifications are consumed.
type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"http://localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"uploads"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	Prefix    string `env:"STORAGE_NOTIFY_PREFIX"`
	Suffix    string `env:"STORAGE_NOTIFY_SUFFIX"`
}

// StoreConfig selects the metadata table records are written to.
type StoreConfig struct {
	Provider    string `env:"STORE_PROVIDER" envDefault:"dynamodb"`
	Table       string `env:"STORE_TABLE" envDefault:"MediaMetadata"`
	Region      string `env:"STORE_REGION"`
	Endpoint    string `env:"STORE_ENDPOINT"`
	MaxAttempts int    `env:"STORE_MAX_ATTEMPTS" envDefault:"3"`
	DSN         string `env:"STORE_DSN"`
	RedisURL    string `env:"STORE_REDIS_URL"`
	ConsulAddr  string `env:"STORE_CONSUL_ADDR"`
	KeyPrefix   string `env:"STORE_KEY_PREFIX"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=mediameta"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9102"`
}

// Load reads an optional .env file and parses environment variables into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
