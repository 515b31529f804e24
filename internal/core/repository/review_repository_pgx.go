package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

// PgxReviewRepository implements domain.ReviewRepository using pgxpool.
type PgxReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new PgxReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *PgxReviewRepository {
	return &PgxReviewRepository{pool: pool}
}

// Create inserts the review, assigning an id when r.ID is empty.
func (r *PgxReviewRepository) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	query := `
		INSERT INTO reviews (id, user_id, content_id, comment, rating)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, user_id::text, content_id, comment, rating::float8, review_at
	`

	id := rv.ID
	if id == "" {
		id = uuid.NewString()
	}

	var out domain.Review
	err := r.pool.QueryRow(ctx, query, id, rv.UserID, rv.ContentID, rv.Comment, rv.Rating).Scan(
		&out.ID, &out.UserID, &out.ContentID, &out.Comment, &out.Rating, &out.ReviewAt,
	)
	if err != nil {
		return nil, mapWriteError(fmt.Errorf("insert review: %w", err))
	}
	return &out, nil
}

// Get returns the review or (nil, nil) when absent.
func (r *PgxReviewRepository) Get(ctx context.Context, id string) (*domain.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
		SELECT id::text, user_id::text, content_id, comment, rating::float8, review_at
		FROM reviews
		WHERE id = $1
	`

	var out domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.UserID, &out.ContentID, &out.Comment, &out.Rating, &out.ReviewAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// ListByContent returns reviews for a content, newest first.
func (r *PgxReviewRepository) ListByContent(ctx context.Context, contentID string) ([]domain.Review, error) {
	query := `
		SELECT id::text, user_id::text, content_id, comment, rating::float8, review_at
		FROM reviews
		WHERE content_id = $1
		ORDER BY review_at DESC
	`

	rows, err := r.pool.Query(ctx, query, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ContentID, &rv.Comment, &rv.Rating, &rv.ReviewAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Delete removes the review and reports whether it existed.
func (r *PgxReviewRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
