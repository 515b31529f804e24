package domain

//go:generate mockgen -source=avatar_store.go -destination=mocks/mock_avatar_store.go -package=mocks

import (
	"context"
	"io"
)

// AvatarStore is the object storage holding avatar images.
type AvatarStore interface {
	// Put uploads size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Remove deletes the object. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string
}

// LoginThrottle limits repeated login attempts for one key.
type LoginThrottle interface {
	// Hit counts an attempt and reports whether it is still within the limit.
	Hit(ctx context.Context, key string) (bool, error)

	// Reset forgets the attempts recorded for key.
	Reset(ctx context.Context, key string) error
}
