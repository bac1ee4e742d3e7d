package archive

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOClient creates a client for the endpoint of cfg.
func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// EnsureBucket creates the bucket of cfg when it does not exist.
func EnsureBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
	}
	return nil
}

// MinioStore is an ObjectStore backed by a MinIO client.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to the endpoint of cfg.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client}, nil
}

// NewMinioStoreWithClient wraps an existing client.
func NewMinioStoreWithClient(client *minio.Client) (*MinioStore, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &MinioStore{client: client}, nil
}

// Client returns the underlying client.
func (s *MinioStore) Client() *minio.Client {
	return s.client
}

func (s *MinioStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("minio store not initialized")
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, bucket, key, body, size, opts)
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
