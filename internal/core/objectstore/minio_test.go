package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duynhne/catalog-service/config"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		wantHost   string
		wantSecure bool
	}{
		{raw: "http://localhost:9000", wantHost: "localhost:9000"},
		{raw: "https://s3.example.com", wantHost: "s3.example.com", wantSecure: true},
		{raw: "minio:9000", wantHost: "minio:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, secure := parseEndpoint(tt.raw)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestPublicURL(t *testing.T) {
	s := &MinioAvatarStore{baseURL: publicBase(config.StorageConfig{PublicBaseURL: "https://cdn.example.com/"}, false, "minio:9000")}
	assert.Equal(t, "https://cdn.example.com/avatars/u1/a.png", s.PublicURL("avatars/u1/a.png"))

	s = &MinioAvatarStore{baseURL: publicBase(config.StorageConfig{Bucket: "media"}, false, "minio:9000")}
	assert.Equal(t, "http://minio:9000/media/avatars/u1/a.png", s.PublicURL("avatars/u1/a.png"))
}

// Integration test against a real MinIO started with testcontainers-go.
//
//	GO_TEST_INTEGRATION=1 go test ./internal/core/objectstore -v -count=1
func TestIntegration_PutAndRemove(t *testing.T) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "avatars"
	)
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image: "docker.io/minio/minio:latest",
			Env: map[string]string{
				"MINIO_ROOT_USER":     rootUser,
				"MINIO_ROOT_PASSWORD": rootPassword,
			},
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	cfg := config.StorageConfig{
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		AccessKey: rootUser,
		SecretKey: rootPassword,
		Bucket:    bucket,
	}

	_, err = New(ctx, cfg)
	require.Error(t, err, "bucket does not exist yet")

	admin, err := minio.New(host+":"+port.Port(), &minio.Options{
		Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
	})
	require.NoError(t, err)
	require.NoError(t, admin.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: "us-east-1"}))

	store, err := New(ctx, cfg)
	require.NoError(t, err)

	payload := []byte("\x89PNG fake image")
	key := "avatars/u1/a.png"
	require.NoError(t, store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "image/png"))

	obj, err := admin.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	require.NoError(t, err)
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	info, err := admin.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)

	require.NoError(t, store.Remove(ctx, key))
	require.NoError(t, store.Remove(ctx, key))
}
