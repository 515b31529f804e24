package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FavoriteService manages the caller's favorite contents.
type FavoriteService struct {
	favorites domain.FavoriteRepository
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(favorites domain.FavoriteRepository) *FavoriteService {
	return &FavoriteService{favorites: favorites}
}

// Add marks contentID as a favorite of userID. Adding twice refreshes the timestamp.
func (s *FavoriteService) Add(ctx context.Context, userID, contentID string) (*domain.Favorite, error) {
	ctx, span := middleware.StartSpan(ctx, "favorites.add", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("content.id", contentID),
	))
	defer span.End()

	contentID = strings.TrimSpace(contentID)
	if contentID == "" || catalogIDTooLong(contentID) {
		return nil, fmt.Errorf("content id must be 1-%d characters: %w", maxCatalogIDLength, ErrInvalidInput)
	}

	fav, err := s.favorites.Upsert(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, domain.ErrReferenceMissing) {
			return nil, fmt.Errorf("favorite %q: %w", contentID, ErrContentNotFound)
		}
		if errors.Is(err, domain.ErrValueTooLong) {
			return nil, fmt.Errorf("favorite: %w: %v", ErrInvalidInput, err)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("upsert favorite: %w", err)
	}
	return fav, nil
}

// List returns the caller's favorites.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	ctx, span := middleware.StartSpan(ctx, "favorites.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	favs, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

// Remove deletes a favorite.
func (s *FavoriteService) Remove(ctx context.Context, userID, contentID string) error {
	ctx, span := middleware.StartSpan(ctx, "favorites.remove", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("content.id", contentID),
	))
	defer span.End()

	found, err := s.favorites.Delete(ctx, userID, contentID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete favorite: %w", err)
	}
	if !found {
		return fmt.Errorf("favorite %q: %w", contentID, ErrFavoriteNotFound)
	}
	return nil
}
