package domain

//go:generate mockgen -source=history_repository.go -destination=mocks/mock_history_repository.go -package=mocks

import (
	"context"
	"time"
)

// HistoryEntry records how far a user got through a media item.
type HistoryEntry struct {
	UserID    string    `json:"user_id"`
	MediaID   string    `json:"media_id"`
	Progress  int       `json:"progress"`
	WatchedAt time.Time `json:"watched_at"`
}

// RecordHistoryRequest is the body of PUT /history.
type RecordHistoryRequest struct {
	MediaID  string `json:"media_id" binding:"required,max=36"`
	Progress *int   `json:"progress" binding:"required"`
}

// HistoryRepository defines the data-access contract for watch history.
type HistoryRepository interface {
	// Upsert stores progress for the pair, replacing any previous entry.
	// Returns ErrReferenceMissing when the media does not exist.
	Upsert(ctx context.Context, userID, mediaID string, progress int) (*HistoryEntry, error)

	// Get returns the entry or (nil, nil) when absent.
	Get(ctx context.Context, userID, mediaID string) (*HistoryEntry, error)

	// ListByUser returns the user's history, most recently watched first.
	ListByUser(ctx context.Context, userID string) ([]HistoryEntry, error)

	// Delete removes the entry and reports whether it existed.
	Delete(ctx context.Context, userID, mediaID string) (bool, error)
}
