package metastore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultTable is the table records are written to when none is configured.
const DefaultTable = "MediaMetadata"

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("metastore: record not found")

// Item is a single file-metadata record as stored in the table.
type Item struct {
	ID       string  `json:"id"`
	FileType string  `json:"filetype"`
	SizeKiB  float64 `json:"size"`
}

// Config contains the information required to reach a metadata table.
type Config struct {
	Provider    string
	Table       string
	Region      string
	Endpoint    string
	MaxAttempts int
	DSN         string
	RedisURL    string
	ConsulAddr  string
	KeyPrefix   string
}

// Store is the write path the recorder expects. Put must overwrite any
// existing item with the same ID.
type Store interface {
	Put(ctx context.Context, item Item) error
	Close() error
}

// Reader is implemented by stores that can read an item back.
type Reader interface {
	Get(ctx context.Context, id string) (Item, error)
}

// New creates a metadata store based on the given configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = cfg.Table
	}

	switch strings.ToLower(cfg.Provider) {
	case "dynamodb", "":
		return newDynamoStore(ctx, cfg)
	case "postgres":
		return newPostgresStore(ctx, cfg)
	case "redis":
		return newRedisStore(ctx, cfg)
	case "consul":
		return newConsulStore(cfg)
	case "sqlite":
		return newSQLiteStore(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported metadata store provider: %s", cfg.Provider)
	}
}

// FormatSize renders a kibibyte value as the shortest decimal string that
// round-trips, which is what numeric string attributes expect.
func FormatSize(kib float64) string {
	return strconv.FormatFloat(kib, 'f', -1, 64)
}

func itemKey(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "/" + id
}
