package domain

//go:generate mockgen -source=review_repository.go -destination=mocks/mock_review_repository.go -package=mocks

import (
	"context"
	"time"
)

// Review is a user's comment and rating for a content.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ContentID string    `json:"content_id"`
	Comment   string    `json:"comment"`
	Rating    float64   `json:"rating"`
	ReviewAt  time.Time `json:"review_at"`
}

// CreateReviewRequest is the body of POST /contents/:contentId/reviews.
type CreateReviewRequest struct {
	Comment string   `json:"comment" binding:"required"`
	Rating  *float64 `json:"rating" binding:"required"`
}

// ReviewRepository defines the data-access contract for reviews.
type ReviewRepository interface {
	// Create inserts the review. Returns ErrReferenceMissing when the content
	// does not exist.
	Create(ctx context.Context, r *Review) (*Review, error)

	// Get returns the review or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*Review, error)

	// ListByContent returns reviews for a content, newest first.
	ListByContent(ctx context.Context, contentID string) ([]Review, error)

	// Delete removes the review and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}
