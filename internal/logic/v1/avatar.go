package v1

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/logger"
	"github.com/duynhne/catalog-service/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AvatarService uploads and removes user avatars.
type AvatarService struct {
	users        domain.UserRepository
	store        domain.AvatarStore
	maxBytes     int64
	contentTypes []string
}

// NewAvatarService creates a new AvatarService accepting images of the given
// content types up to maxBytes.
func NewAvatarService(users domain.UserRepository, store domain.AvatarStore, maxBytes int64, contentTypes []string) *AvatarService {
	return &AvatarService{
		users:        users,
		store:        store,
		maxBytes:     maxBytes,
		contentTypes: contentTypes,
	}
}

// MaxBytes is the largest avatar Upload accepts.
func (s *AvatarService) MaxBytes() int64 { return s.maxBytes }

// Upload stores the image under avatars/<userID>/<uuid>.<ext>, records it on
// the user and returns its public URL. The previous avatar is removed best-effort.
func (s *AvatarService) Upload(ctx context.Context, caller *domain.UserRow, r io.Reader, size int64, contentType string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "avatar.upload", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", caller.ID),
		attribute.String("content_type", contentType),
		attribute.Int64("size", size),
	))
	defer span.End()

	if size <= 0 || size > s.maxBytes {
		return "", fmt.Errorf("avatar size %d outside (0, %d]: %w", size, s.maxBytes, ErrInvalidInput)
	}
	ext, known := avatarExtensions[contentType]
	if !known || !slices.Contains(s.contentTypes, contentType) {
		return "", fmt.Errorf("avatar content type %q: %w", contentType, ErrInvalidInput)
	}

	key := path.Join("avatars", caller.ID, uuid.NewString()+ext)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store avatar: %w", err)
	}
	if err := s.users.SetAvatarKey(ctx, caller.ID, &key); err != nil {
		span.RecordError(err)
		s.removeObject(ctx, key)
		return "", fmt.Errorf("record avatar key: %w", err)
	}

	if caller.AvatarKey != nil && *caller.AvatarKey != key {
		s.removeObject(ctx, *caller.AvatarKey)
	}
	return s.store.PublicURL(key), nil
}

// Delete removes the caller's avatar.
func (s *AvatarService) Delete(ctx context.Context, caller *domain.UserRow) error {
	ctx, span := middleware.StartSpan(ctx, "avatar.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", caller.ID),
	))
	defer span.End()

	if caller.AvatarKey == nil {
		return fmt.Errorf("avatar of %q: %w", caller.ID, ErrAvatarNotFound)
	}
	if err := s.users.SetAvatarKey(ctx, caller.ID, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clear avatar key: %w", err)
	}
	s.removeObject(ctx, *caller.AvatarKey)
	return nil
}

func (s *AvatarService) removeObject(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to remove avatar object")
	}
}
