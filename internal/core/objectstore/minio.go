// Package objectstore keeps avatar images in an S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/duynhne/catalog-service/config"
)

// MinioAvatarStore implements domain.AvatarStore on top of minio-go.
type MinioAvatarStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// New connects to the endpoint and fails fast when the bucket is missing.
func New(ctx context.Context, cfg config.StorageConfig) (*MinioAvatarStore, error) {
	endpoint, secure := parseEndpoint(cfg.Endpoint)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &MinioAvatarStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg, secure, endpoint),
	}, nil
}

// Put uploads the object.
func (s *MinioAvatarStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Remove deletes the object. S3 reports success for missing keys.
func (s *MinioAvatarStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == 404 {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// PublicURL joins the public base URL and key.
func (s *MinioAvatarStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// parseEndpoint strips the scheme minio-go does not accept and derives Secure from it.
func parseEndpoint(raw string) (string, bool) {
	endpoint := raw
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}
	return endpoint, secure
}

func publicBase(cfg config.StorageConfig, secure bool, endpoint string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}
	return scheme + "://" + endpoint + "/" + cfg.Bucket
}
