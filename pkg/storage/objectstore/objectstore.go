package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
	Suffix    string
}

// ObjectCreated is a single object-created notification record.
type ObjectCreated struct {
	Bucket string
	Key    string
	Size   int64
}

// Notification groups the records delivered together, or carries the
// error the listener hit.
type Notification struct {
	Records []ObjectCreated
	Err     error
}

// Listener streams object-created notifications for a bucket.
type Listener interface {
	Listen(ctx context.Context) <-chan Notification
	Close() error
}

// New creates a bucket notification listener based on the given configuration.
func New(cfg Config) (Listener, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioListener(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

type minioListener struct {
	client *minio.Client
	cfg    Config
}

func newMinioListener(cfg Config) (Listener, error) {
	cl, err := minio.New(endpointHost(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioListener{client: cl, cfg: cfg}, nil
}

func (m *minioListener) Listen(ctx context.Context) <-chan Notification {
	out := make(chan Notification)
	in := m.client.ListenBucketNotification(ctx, m.cfg.Bucket, m.cfg.Prefix, m.cfg.Suffix, []string{
		string(notification.ObjectCreatedAll),
	})

	go func() {
		defer close(out)
		for info := range in {
			n := FromNotificationInfo(info)
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (m *minioListener) Close() error {
	return nil
}

// FromNotificationInfo converts a minio notification batch.
func FromNotificationInfo(info notification.Info) Notification {
	if info.Err != nil {
		return Notification{Err: info.Err}
	}

	n := Notification{Records: make([]ObjectCreated, 0, len(info.Records))}
	for _, rec := range info.Records {
		n.Records = append(n.Records, ObjectCreated{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
			Size:   rec.S3.Object.Size,
		})
	}
	return n
}

// endpointHost strips a scheme, since minio.New wants host[:port].
func endpointHost(endpoint string) string {
	if !strings.Contains(endpoint, "://") {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
