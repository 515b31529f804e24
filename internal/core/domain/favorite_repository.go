package domain

//go:generate mockgen -source=favorite_repository.go -destination=mocks/mock_favorite_repository.go -package=mocks

import (
	"context"
	"time"
)

// Favorite links a user to a content they marked.
type Favorite struct {
	UserID      string    `json:"user_id"`
	ContentID   string    `json:"content_id"`
	FavoritedAt time.Time `json:"favorited_at"`
}

// AddFavoriteRequest is the body of POST /favorites.
type AddFavoriteRequest struct {
	ContentID string `json:"content_id" binding:"required,max=36"`
}

// FavoriteRepository defines the data-access contract for favorites.
type FavoriteRepository interface {
	// Upsert inserts the pair or refreshes favorited_at when it already exists.
	// Returns ErrReferenceMissing when the content does not exist.
	Upsert(ctx context.Context, userID, contentID string) (*Favorite, error)

	// ListByUser returns the user's favorites, newest first.
	ListByUser(ctx context.Context, userID string) ([]Favorite, error)

	// Delete removes the pair and reports whether it existed.
	Delete(ctx context.Context, userID, contentID string) (bool, error)
}
