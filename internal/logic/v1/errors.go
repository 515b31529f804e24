// Package v1 provides catalog business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors for session, account and catalog
// failures. They are wrapped with context using fmt.Errorf("%w") when returned
// from business logic methods, and handlers map them with errors.Is.
//
// Example Usage:
//
//	if row == nil {
//	    return nil, fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrRefreshTokenExpired):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired", "code": "REFRESH_TOKEN_EXPIRED"})
//	case errors.Is(err, logicv1.ErrAccessDenied):
//	    c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "code": "ACCESS_DENIED"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
//	}
package v1

import "errors"

// Session errors produced while verifying the access/refresh token pair.
var (
	// ErrMissingTokens indicates the access or refresh token header is absent.
	// HTTP Status: 400 Bad Request
	ErrMissingTokens = errors.New("access and refresh tokens are required")

	// ErrInvalidAccessToken indicates the access token is malformed or its signature is bad.
	// HTTP Status: 401 Unauthorized
	ErrInvalidAccessToken = errors.New("invalid access token")

	// ErrInvalidRefreshToken indicates the refresh token is malformed, badly signed,
	// or no longer the one stored for the user.
	// HTTP Status: 401 Unauthorized
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenExpired indicates the refresh token is past its expiry.
	// HTTP Status: 401 Unauthorized
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrTokenMismatch indicates the access and refresh tokens belong to different logins.
	// HTTP Status: 401 Unauthorized
	ErrTokenMismatch = errors.New("access and refresh tokens do not match")

	// ErrAccessDenied indicates the caller is authenticated but not allowed.
	// HTTP Status: 403 Forbidden
	ErrAccessDenied = errors.New("access denied")
)

// Account errors.
var (
	// ErrInvalidCredentials indicates the email or password is wrong.
	// HTTP Status: 401 Unauthorized (unknown email looks the same)
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the user does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountLocked indicates the account is deactivated.
	// HTTP Status: 403 Forbidden
	ErrAccountLocked = errors.New("account locked")

	// ErrUserExists indicates the email is already registered.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrTooManyAttempts indicates the login throttle tripped.
	// HTTP Status: 429 Too Many Requests
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// Catalog errors.
var (
	// ErrInvalidInput indicates a field failed validation.
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// HTTP Status: 404 Not Found for all of the following.
	ErrContentNotFound  = errors.New("content not found")
	ErrMediaNotFound    = errors.New("media not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrFavoriteNotFound = errors.New("favorite not found")
	ErrHistoryNotFound  = errors.New("history entry not found")
	ErrAvatarNotFound   = errors.New("avatar not found")
)
