package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"caseflow/internal/platform/config"
)

var _ Gateway = (*MinioGateway)(nil)

// MinioGateway implements Gateway against any S3-compatible object store.
type MinioGateway struct {
	client *minio.Client
	bucket string
}

// NewMinioGateway connects to the object store and ensures the bucket exists.
func NewMinioGateway(ctx context.Context, cfg config.StorageConfig) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinioGateway{client: client, bucket: cfg.Bucket}, nil
}

func (g *MinioGateway) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := g.client.PutObject(ctx, g.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (g *MinioGateway) Head(ctx context.Context, key string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("head object %q: %w", key, err)
	}
	return true, nil
}

func (g *MinioGateway) PresignPut(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	u, err := g.client.PresignedPutObject(ctx, g.bucket, key, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign put %q: %w", key, err)
	}
	return u, nil
}

func (g *MinioGateway) PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, expiry, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("presign get %q: %w", key, err)
	}
	return u, nil
}
