package v1

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	logicv1 "github.com/duynhne/catalog-service/internal/logic/v1"
	"github.com/gin-gonic/gin"
)

const (
	avatarFormField = "avatar"

	// multipartOverhead allows for boundaries and part headers on top of
	// the file itself.
	multipartOverhead = 8 << 10
)

// UploadAvatar stores the multipart "avatar" file as the caller's avatar.
// PUT /api/v1/users/me/avatar
func (h *Handler) UploadAvatar(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	limit := h.avatars.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile(avatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fmt.Errorf("avatar exceeds %d bytes: %w", limit, logicv1.ErrInvalidInput))
			return
		}
		respondBadRequest(c, fmt.Errorf("form field %q: %w", avatarFormField, err))
		return
	}
	contentType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, fmt.Errorf("avatar content type: %w", logicv1.ErrInvalidInput))
		return
	}

	f, err := fh.Open()
	if err != nil {
		span.RecordError(err)
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	url, err := h.avatars.Upload(ctx, callerFrom(c), f, fh.Size, contentType)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// DeleteAvatar removes the caller's avatar.
// DELETE /api/v1/users/me/avatar
func (h *Handler) DeleteAvatar(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.avatars.Delete(ctx, callerFrom(c)); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
