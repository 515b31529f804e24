package v1

import (
	"net/http"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// ListFavorites returns the caller's favorites.
func (h *Handler) ListFavorites(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	favs, err := h.favorites.List(ctx, sessionFrom(c).Claims.SubjectID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favs})
}

// AddFavorite marks a content as favorite.
func (h *Handler) AddFavorite(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	fav, err := h.favorites.Add(ctx, sessionFrom(c).Claims.SubjectID, req.ContentID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// RemoveFavorite unmarks a content.
func (h *Handler) RemoveFavorite(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.favorites.Remove(ctx, sessionFrom(c).Claims.SubjectID, c.Param("contentId")); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHistory returns the caller's watch history.
func (h *Handler) ListHistory(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	entries, err := h.history.List(ctx, sessionFrom(c).Claims.SubjectID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// RecordHistory stores watch progress for a media item.
func (h *Handler) RecordHistory(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.RecordHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	entry, err := h.history.Record(ctx, sessionFrom(c).Claims.SubjectID, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetHistory returns the caller's progress for one media item.
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	entry, err := h.history.Get(ctx, sessionFrom(c).Claims.SubjectID, c.Param("mediaId"))
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RemoveHistory deletes the caller's progress for one media item.
func (h *Handler) RemoveHistory(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.history.Remove(ctx, sessionFrom(c).Claims.SubjectID, c.Param("mediaId")); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListReviews returns the reviews of a content. Public.
func (h *Handler) ListReviews(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	reviews, err := h.reviews.ListByContent(ctx, c.Param("contentId"))
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// CreateReview posts a review by the caller.
func (h *Handler) CreateReview(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	review, err := h.reviews.Create(ctx, sessionFrom(c).Claims.SubjectID, c.Param("contentId"), req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// DeleteReview removes a review owned by the caller, or any review for
// admins and moderators.
func (h *Handler) DeleteReview(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.reviews.Delete(ctx, sessionFrom(c), c.Param("id")); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
