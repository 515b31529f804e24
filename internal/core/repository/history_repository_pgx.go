package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

// PgxHistoryRepository implements domain.HistoryRepository using pgxpool.
type PgxHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new PgxHistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *PgxHistoryRepository {
	return &PgxHistoryRepository{pool: pool}
}

// Upsert stores progress for the pair, replacing any previous entry.
func (r *PgxHistoryRepository) Upsert(ctx context.Context, userID, mediaID string, progress int) (*domain.HistoryEntry, error) {
	query := `
		INSERT INTO history (user_id, media_id, progress, watched_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, media_id)
		DO UPDATE SET progress = EXCLUDED.progress, watched_at = EXCLUDED.watched_at
		RETURNING user_id::text, media_id, progress, watched_at
	`

	var h domain.HistoryEntry
	err := r.pool.QueryRow(ctx, query, userID, mediaID, progress).Scan(&h.UserID, &h.MediaID, &h.Progress, &h.WatchedAt)
	if err != nil {
		return nil, mapWriteError(fmt.Errorf("upsert history: %w", err))
	}
	return &h, nil
}

// Get returns the entry or (nil, nil) when absent.
func (r *PgxHistoryRepository) Get(ctx context.Context, userID, mediaID string) (*domain.HistoryEntry, error) {
	query := `
		SELECT user_id::text, media_id, progress, watched_at
		FROM history
		WHERE user_id = $1 AND media_id = $2
	`

	var h domain.HistoryEntry
	err := r.pool.QueryRow(ctx, query, userID, mediaID).Scan(&h.UserID, &h.MediaID, &h.Progress, &h.WatchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// ListByUser returns the user's history, most recently watched first.
func (r *PgxHistoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	query := `
		SELECT user_id::text, media_id, progress, watched_at
		FROM history
		WHERE user_id = $1
		ORDER BY watched_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.UserID, &h.MediaID, &h.Progress, &h.WatchedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// Delete removes the entry and reports whether it existed.
func (r *PgxHistoryRepository) Delete(ctx context.Context, userID, mediaID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM history WHERE user_id = $1 AND media_id = $2`, userID, mediaID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
