package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

// PgxFavoriteRepository implements domain.FavoriteRepository using pgxpool.
type PgxFavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository creates a new PgxFavoriteRepository.
func NewFavoriteRepository(pool *pgxpool.Pool) *PgxFavoriteRepository {
	return &PgxFavoriteRepository{pool: pool}
}

// Upsert inserts the pair or refreshes favorited_at when it already exists.
func (r *PgxFavoriteRepository) Upsert(ctx context.Context, userID, contentID string) (*domain.Favorite, error) {
	query := `
		INSERT INTO favorites (user_id, content_id, favorited_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, content_id) DO UPDATE SET favorited_at = EXCLUDED.favorited_at
		RETURNING user_id::text, content_id, favorited_at
	`

	var f domain.Favorite
	err := r.pool.QueryRow(ctx, query, userID, contentID).Scan(&f.UserID, &f.ContentID, &f.FavoritedAt)
	if err != nil {
		return nil, mapWriteError(fmt.Errorf("upsert favorite: %w", err))
	}
	return &f, nil
}

// ListByUser returns the user's favorites, newest first.
func (r *PgxFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]domain.Favorite, error) {
	query := `
		SELECT user_id::text, content_id, favorited_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY favorited_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []domain.Favorite{}
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.UserID, &f.ContentID, &f.FavoritedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Delete removes the pair and reports whether it existed.
func (r *PgxFavoriteRepository) Delete(ctx context.Context, userID, contentID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
