package v1

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/core/token"
	"github.com/duynhne/catalog-service/internal/logger"
	"github.com/duynhne/catalog-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Credentials is the token pair presented by a request. Empty means absent.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Session is the outcome of a successful verification.
// NewAccessToken is set only when the access token had expired and was
// reissued; NewRefreshToken additionally when the refresh token was rotated.
type Session struct {
	Claims          token.Claims
	NewAccessToken  string
	NewRefreshToken string
}

// Refreshed reports whether the session was renewed during verification.
func (s *Session) Refreshed() bool { return s.NewAccessToken != "" }

// SessionVerifier decides whether a token pair authenticates the caller and
// silently renews an expired access token using the refresh token.
type SessionVerifier struct {
	codec     *token.Codec
	refresher *refresher
	users     domain.UserRepository
}

// NewSessionVerifier creates a verifier. With rotate set, every silent
// refresh also replaces the stored refresh token.
func NewSessionVerifier(codec *token.Codec, issuer *token.Issuer, users domain.UserRepository, rotate bool) *SessionVerifier {
	return &SessionVerifier{
		codec:     codec,
		refresher: &refresher{issuer: issuer, users: users, rotate: rotate},
		users:     users,
	}
}

// Authenticate verifies creds without a role requirement.
func (v *SessionVerifier) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	return v.Authorize(ctx, creds)
}

// Authorize verifies creds and, when allowed is non-empty, requires the
// resolved role to be one of allowed.
func (v *SessionVerifier) Authorize(ctx context.Context, creds Credentials, allowed ...domain.Role) (*Session, error) {
	ctx, span := middleware.StartSpan(ctx, "session.authorize", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess, err := v.verify(ctx, creds, allowed)
	if err != nil {
		outcome := outcomeOf(err)
		middleware.RecordAuthOutcome(outcome)
		span.SetAttributes(attribute.String("session.outcome", outcome))
		logRejection(ctx, outcome, err)
		return nil, err
	}

	outcome := "authenticated"
	if sess.Refreshed() {
		outcome = "refreshed"
		span.AddEvent("session.refreshed")
	}
	middleware.RecordAuthOutcome(outcome)
	span.SetAttributes(
		attribute.String("session.outcome", outcome),
		attribute.String("user.id", sess.Claims.SubjectID),
	)
	return sess, nil
}

// ResolveCaller verifies creds and loads the caller's user record.
func (v *SessionVerifier) ResolveCaller(ctx context.Context, creds Credentials, allowed ...domain.Role) (*domain.UserRow, *Session, error) {
	sess, err := v.Authorize(ctx, creds, allowed...)
	if err != nil {
		return nil, nil, err
	}
	row, err := v.LoadCaller(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	return row, sess, nil
}

// LoadCaller loads the user identified by an already verified session.
func (v *SessionVerifier) LoadCaller(ctx context.Context, sess *Session) (*domain.UserRow, error) {
	row, err := v.users.FindByID(ctx, sess.Claims.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load caller %q: %w", sess.Claims.SubjectID, err)
	}
	if row == nil {
		logger.FromContext(ctx).Warn().
			Str("user_id", sess.Claims.SubjectID).
			Msg("Session subject has no user record")
		return nil, fmt.Errorf("load caller %q: %w", sess.Claims.SubjectID, ErrUserNotFound)
	}
	return row, nil
}

func (v *SessionVerifier) verify(ctx context.Context, creds Credentials, allowed []domain.Role) (*Session, error) {
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, ErrMissingTokens
	}

	claims, err := v.codec.VerifyAccess(creds.AccessToken)
	if err == nil {
		// The refresh token is not looked at while the access token is valid.
		if err := checkRole(claims.Role, allowed); err != nil {
			return nil, fmt.Errorf("authorize %q: %w", claims.SubjectID, err)
		}
		return &Session{Claims: claims}, nil
	}
	if !errors.Is(err, token.ErrTokenExpired) {
		return nil, fmt.Errorf("verify access token: %w", ErrInvalidAccessToken)
	}

	stale, ok := v.codec.DecodeUnsafe(creds.AccessToken)
	if !ok || stale.Kind != token.KindAccess {
		return nil, fmt.Errorf("decode expired access token: %w", ErrInvalidAccessToken)
	}

	refreshClaims, err := v.codec.VerifyRefresh(creds.RefreshToken)
	if err != nil {
		return nil, refreshFailure(err)
	}
	if stale.Email != refreshClaims.Email {
		return nil, fmt.Errorf("access token for %q, refresh token for %q: %w",
			stale.Email, refreshClaims.Email, ErrTokenMismatch)
	}

	pair, err := v.refresher.reissue(ctx, creds.RefreshToken, refreshClaims, allowed)
	if err != nil {
		return nil, err
	}
	return &Session{
		Claims:          refreshClaims,
		NewAccessToken:  pair.AccessToken,
		NewRefreshToken: pair.RefreshToken,
	}, nil
}

// refresher mints new credentials from a verified refresh token. It is shared
// by silent refresh and the explicit refresh endpoint.
type refresher struct {
	issuer *token.Issuer
	users  domain.UserRepository
	rotate bool
}

// reissue checks presented against the user's stored refresh token and mints
// a new access token. With rotation on it also mints and stores a new refresh
// token; otherwise the returned RefreshToken is empty. The role gate runs
// before anything is minted so a denied request leaves the stored token alone.
func (r *refresher) reissue(ctx context.Context, presented string, claims token.Claims, allowed []domain.Role) (token.Pair, error) {
	row, err := r.users.FindByID(ctx, claims.SubjectID)
	if err != nil {
		return token.Pair{}, fmt.Errorf("load user %q: %w", claims.SubjectID, err)
	}
	if row == nil || row.RefreshToken == nil || *row.RefreshToken != presented {
		return token.Pair{}, fmt.Errorf("refresh token for %q superseded: %w", claims.SubjectID, ErrInvalidRefreshToken)
	}
	if !row.IsActive {
		return token.Pair{}, fmt.Errorf("refresh for %q: %w", claims.SubjectID, ErrAccountLocked)
	}
	if row.Role != claims.Role {
		// The role changed after this refresh token was minted.
		return token.Pair{}, fmt.Errorf("refresh token for %q carries role %q, user has %q: %w",
			claims.SubjectID, claims.Role, row.Role, ErrInvalidRefreshToken)
	}
	if err := checkRole(claims.Role, allowed); err != nil {
		return token.Pair{}, fmt.Errorf("authorize %q: %w", claims.SubjectID, err)
	}

	if !r.rotate {
		access, err := r.issuer.IssueAccess(claims)
		if err != nil {
			return token.Pair{}, err
		}
		return token.Pair{AccessToken: access}, nil
	}

	pair, err := r.issuer.IssuePair(claims.SubjectID, claims.Email, claims.Role)
	if err != nil {
		return token.Pair{}, err
	}
	swapped, err := r.users.SwapRefreshToken(ctx, claims.SubjectID, presented, pair.RefreshToken)
	if err != nil {
		return token.Pair{}, fmt.Errorf("rotate refresh token for %q: %w", claims.SubjectID, err)
	}
	if !swapped {
		// A concurrent refresh rotated the token first.
		return token.Pair{}, fmt.Errorf("refresh token for %q rotated concurrently: %w", claims.SubjectID, ErrInvalidRefreshToken)
	}
	return pair, nil
}

func refreshFailure(err error) error {
	if errors.Is(err, token.ErrTokenExpired) {
		return fmt.Errorf("verify refresh token: %w", ErrRefreshTokenExpired)
	}
	return fmt.Errorf("verify refresh token: %w", ErrInvalidRefreshToken)
}

func checkRole(role domain.Role, allowed []domain.Role) error {
	if len(allowed) == 0 || slices.Contains(allowed, role) {
		return nil
	}
	return fmt.Errorf("role %q: %w", role, ErrAccessDenied)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrMissingTokens):
		return "missing_tokens"
	case errors.Is(err, ErrInvalidAccessToken):
		return "invalid_access_token"
	case errors.Is(err, ErrRefreshTokenExpired):
		return "refresh_token_expired"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	default:
		return "error"
	}
}

// logRejection logs policy failures at warn and store failures at error.
// Malformed or expired credentials are routine and stay at debug.
func logRejection(ctx context.Context, outcome string, err error) {
	l := logger.FromContext(ctx)
	switch outcome {
	case "token_mismatch", "access_denied", "invalid_refresh_token", "account_locked":
		l.Warn().Err(err).Str("outcome", outcome).Msg("Session rejected")
	case "error":
		l.Error().Err(err).Msg("Session verification failed")
	default:
		l.Debug().Err(err).Str("outcome", outcome).Msg("Session rejected")
	}
}
