package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"gramaalert-be/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignedTTL is the longest expiry S3 presigning allows.
const presignedTTL = 7 * 24 * time.Hour

// MinIOStorage stores issue photos in a single bucket.
type MinIOStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, publicBaseURL: cfg.PublicBaseURL}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Upload stores the object under key and returns the key as its reference.
func (s *MinIOStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// URL resolves a reference to a retrievable URL. With a public base URL the
// link is permanent, otherwise a presigned GET is issued.
func (s *MinIOStorage) URL(ctx context.Context, ref string) (string, error) {
	if s.publicBaseURL != "" {
		return publicURL(s.publicBaseURL, s.bucket, ref), nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, ref, presignedTTL, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", ref, err)
	}
	return presigned.String(), nil
}

func publicURL(base, bucket, key string) string {
	return base + "/" + bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}
