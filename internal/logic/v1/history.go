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

// HistoryService records watch progress.
type HistoryService struct {
	history domain.HistoryRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(history domain.HistoryRepository) *HistoryService {
	return &HistoryService{history: history}
}

// Record stores progress (a percentage in [0, 100]) for mediaID.
func (s *HistoryService) Record(ctx context.Context, userID string, req domain.RecordHistoryRequest) (*domain.HistoryEntry, error) {
	ctx, span := middleware.StartSpan(ctx, "history.record", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("media.id", req.MediaID),
	))
	defer span.End()

	mediaID := strings.TrimSpace(req.MediaID)
	if mediaID == "" || catalogIDTooLong(mediaID) {
		return nil, fmt.Errorf("media id must be 1-%d characters: %w", maxCatalogIDLength, ErrInvalidInput)
	}
	if req.Progress == nil || *req.Progress < 0 || *req.Progress > 100 {
		return nil, fmt.Errorf("progress must be within [0, 100]: %w", ErrInvalidInput)
	}

	entry, err := s.history.Upsert(ctx, userID, mediaID, *req.Progress)
	if err != nil {
		if errors.Is(err, domain.ErrReferenceMissing) {
			return nil, fmt.Errorf("history %q: %w", mediaID, ErrMediaNotFound)
		}
		if errors.Is(err, domain.ErrValueTooLong) {
			return nil, fmt.Errorf("history: %w: %v", ErrInvalidInput, err)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("upsert history: %w", err)
	}
	return entry, nil
}

// Get returns the caller's progress for mediaID.
func (s *HistoryService) Get(ctx context.Context, userID, mediaID string) (*domain.HistoryEntry, error) {
	ctx, span := middleware.StartSpan(ctx, "history.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("media.id", mediaID),
	))
	defer span.End()

	entry, err := s.history.Get(ctx, userID, mediaID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get history: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("history %q: %w", mediaID, ErrHistoryNotFound)
	}
	return entry, nil
}

// List returns the caller's history.
func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	ctx, span := middleware.StartSpan(ctx, "history.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	entries, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Remove deletes the caller's entry for mediaID.
func (s *HistoryService) Remove(ctx context.Context, userID, mediaID string) error {
	ctx, span := middleware.StartSpan(ctx, "history.remove", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("media.id", mediaID),
	))
	defer span.End()

	found, err := s.history.Delete(ctx, userID, mediaID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete history: %w", err)
	}
	if !found {
		return fmt.Errorf("history %q: %w", mediaID, ErrHistoryNotFound)
	}
	return nil
}
