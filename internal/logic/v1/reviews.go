package v1

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/logger"
	"github.com/duynhne/catalog-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxCommentLength = 255

	// Content and media ids are VARCHAR(36).
	maxCatalogIDLength = 36
)

// catalogIDTooLong reports whether id cannot name any stored content or media.
func catalogIDTooLong(id string) bool {
	return utf8.RuneCountInString(id) > maxCatalogIDLength
}

// ReviewService manages content reviews.
type ReviewService struct {
	reviews domain.ReviewRepository
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviews domain.ReviewRepository) *ReviewService {
	return &ReviewService{reviews: reviews}
}

// Create posts a review by userID. Ratings are in [0, 5] with one decimal.
func (s *ReviewService) Create(ctx context.Context, userID, contentID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	ctx, span := middleware.StartSpan(ctx, "reviews.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("content.id", contentID),
	))
	defer span.End()

	if catalogIDTooLong(contentID) {
		return nil, fmt.Errorf("review for %q: %w", contentID, ErrContentNotFound)
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" || utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, fmt.Errorf("comment must be 1-%d characters: %w", maxCommentLength, ErrInvalidInput)
	}
	if req.Rating == nil || math.IsNaN(*req.Rating) || *req.Rating < 0 || *req.Rating > 5 {
		return nil, fmt.Errorf("rating must be within [0, 5]: %w", ErrInvalidInput)
	}

	review, err := s.reviews.Create(ctx, &domain.Review{
		UserID:    userID,
		ContentID: contentID,
		Comment:   comment,
		Rating:    math.Round(*req.Rating*10) / 10,
	})
	if err != nil {
		if errors.Is(err, domain.ErrReferenceMissing) {
			return nil, fmt.Errorf("review for %q: %w", contentID, ErrContentNotFound)
		}
		if errors.Is(err, domain.ErrValueTooLong) {
			return nil, fmt.Errorf("review: %w: %v", ErrInvalidInput, err)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

// ListByContent returns reviews of contentID.
func (s *ReviewService) ListByContent(ctx context.Context, contentID string) ([]domain.Review, error) {
	ctx, span := middleware.StartSpan(ctx, "reviews.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("content.id", contentID),
	))
	defer span.End()

	reviews, err := s.reviews.ListByContent(ctx, contentID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// Delete removes review id. Only its author or an admin/moderator may do so.
func (s *ReviewService) Delete(ctx context.Context, caller *Session, id string) error {
	ctx, span := middleware.StartSpan(ctx, "reviews.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("review.id", id),
	))
	defer span.End()

	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return fmt.Errorf("review %q: %w", id, ErrReviewNotFound)
	}

	if review.UserID != caller.Claims.SubjectID {
		if err := checkRole(caller.Claims.Role, []domain.Role{domain.RoleAdmin, domain.RoleModerator}); err != nil {
			logger.FromContext(ctx).Warn().
				Str("review_id", id).
				Str("user_id", caller.Claims.SubjectID).
				Msg("Review deletion denied")
			return fmt.Errorf("delete review %q: %w", id, err)
		}
	}

	found, err := s.reviews.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete review: %w", err)
	}
	if !found {
		return fmt.Errorf("review %q: %w", id, ErrReviewNotFound)
	}
	return nil
}
