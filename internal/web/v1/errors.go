package v1

import (
	"errors"
	"net/http"

	"github.com/duynhne/catalog-service/internal/logger"
	logicv1 "github.com/duynhne/catalog-service/internal/logic/v1"
	"github.com/gin-gonic/gin"
)

// Stable error codes returned in the "code" field.
const (
	CodeTokensMissing       = "TOKENS_MISSING"
	CodeInvalidAccessToken  = "INVALID_ACCESS_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"
	CodeTokenMismatch       = "TOKEN_MISMATCH"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeUserExists          = "USER_EXISTS"
	CodeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{logicv1.ErrMissingTokens, http.StatusBadRequest, CodeTokensMissing, "Access and refresh tokens are required"},
	{logicv1.ErrInvalidAccessToken, http.StatusUnauthorized, CodeInvalidAccessToken, "Invalid access token"},
	{logicv1.ErrRefreshTokenExpired, http.StatusUnauthorized, CodeRefreshTokenExpired, "Refresh token expired"},
	{logicv1.ErrInvalidRefreshToken, http.StatusUnauthorized, CodeInvalidRefreshToken, "Invalid refresh token"},
	{logicv1.ErrTokenMismatch, http.StatusUnauthorized, CodeTokenMismatch, "Access and refresh tokens do not match"},
	{logicv1.ErrAccessDenied, http.StatusForbidden, CodeAccessDenied, "Access denied"},
	{logicv1.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{logicv1.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials"},
	{logicv1.ErrAccountLocked, http.StatusForbidden, CodeAccountLocked, "Account locked"},
	{logicv1.ErrUserExists, http.StatusConflict, CodeUserExists, "Email already registered"},
	{logicv1.ErrTooManyAttempts, http.StatusTooManyRequests, CodeTooManyAttempts, "Too many login attempts, try again later"},
	{logicv1.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest, ""},
	{logicv1.ErrContentNotFound, http.StatusNotFound, CodeNotFound, "Content not found"},
	{logicv1.ErrMediaNotFound, http.StatusNotFound, CodeNotFound, "Media not found"},
	{logicv1.ErrReviewNotFound, http.StatusNotFound, CodeNotFound, "Review not found"},
	{logicv1.ErrFavoriteNotFound, http.StatusNotFound, CodeNotFound, "Favorite not found"},
	{logicv1.ErrHistoryNotFound, http.StatusNotFound, CodeNotFound, "History entry not found"},
	{logicv1.ErrAvatarNotFound, http.StatusNotFound, CodeNotFound, "Avatar not found"},
}

// respondError writes the JSON error body for err. Unknown errors become 500
// and are logged; the message never leaks internals.
func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("Request failed")
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("Session check failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				// Validation messages name the offending field.
				msg = err.Error()
			}
			return m.status, gin.H{"error": msg, "code": m.code}
		}
	}
	return http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": CodeInternal}
}

// respondBadRequest reports a request that failed binding.
func respondBadRequest(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Debug().Err(err).Msg("Invalid request")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidRequest})
}
