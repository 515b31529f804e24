package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/core/token"
	"github.com/duynhne/catalog-service/internal/logger"
	"github.com/duynhne/catalog-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AuthOptions tunes AuthService. Zero values are usable.
type AuthOptions struct {
	BcryptCost          int
	RotateRefreshTokens bool

	// Throttle limits login attempts per email. nil disables throttling.
	Throttle domain.LoginThrottle

	// Avatars resolves avatar URLs in user profiles. nil leaves them empty.
	Avatars domain.AvatarStore
}

// AuthService implements account business rules: registration, login,
// explicit refresh, logout and role administration.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users     domain.UserRepository
	codec     *token.Codec
	issuer    *token.Issuer
	refresher *refresher
	throttle  domain.LoginThrottle
	avatars   domain.AvatarStore
	cost      int

	// dummyHash is compared against when the email is unknown so both
	// failure paths spend the same bcrypt time.
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, codec *token.Codec, issuer *token.Issuer, opts AuthOptions) (*AuthService, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("catalog-service-dummy"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		codec:     codec,
		issuer:    issuer,
		refresher: &refresher{issuer: issuer, users: users, rotate: opts.RotateRefreshTokens},
		throttle:  opts.Throttle,
		avatars:   opts.Avatars,
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

// Register creates an account with role user and signs it in.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", email),
	))
	defer span.End()

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register %q: %w", email, ErrUserExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	userID, err := s.users.Create(ctx, name, email, string(passwordHash))
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("register %q: %w", email, ErrUserExists)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	pair, err := s.startSession(ctx, userID, email, domain.RoleUser)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
		User: &domain.User{
			ID:        userID,
			Name:      name,
			Email:     email,
			Role:      domain.RoleUser,
			Gender:    "none",
			CreatedAt: time.Now().UTC(),
		},
	}, nil
}

// Login verifies the password and issues a new token pair. The stored
// refresh token is overwritten so any earlier session stops refreshing.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", email),
	))
	defer span.End()

	if err := s.checkThrottle(ctx, email); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		return nil, err
	}

	row, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", email, err)
	}
	if row == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
	}
	if !row.IsActive {
		span.SetAttributes(attribute.Bool("auth.success", false))
		return nil, fmt.Errorf("authenticate %q: %w", email, ErrAccountLocked)
	}

	pair, err := s.startSession(ctx, row.ID, row.Email, row.Role)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Best-effort, don't fail login.
	if updateErr := s.users.UpdateLastLogin(ctx, row.ID); updateErr != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", updateErr))
	}
	if s.throttle != nil {
		if resetErr := s.throttle.Reset(ctx, email); resetErr != nil {
			logger.FromContext(ctx).Warn().Err(resetErr).Msg("Failed to reset login throttle")
		}
	}

	span.SetAttributes(
		attribute.String("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return &domain.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
		User:         toUser(row, s.avatars),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation
// on, the response carries a new refresh token and the presented one is
// invalidated; otherwise the presented one is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.refresh", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if refreshToken == "" {
		return nil, ErrMissingTokens
	}
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		err = refreshFailure(err)
		middleware.RecordAuthOutcome(outcomeOf(err))
		return nil, err
	}

	pair, err := s.refresher.reissue(ctx, refreshToken, claims, nil)
	if err != nil {
		outcome := outcomeOf(err)
		middleware.RecordAuthOutcome(outcome)
		logRejection(ctx, outcome, err)
		return nil, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	middleware.RecordAuthOutcome("refreshed")
	span.SetAttributes(attribute.String("user.id", claims.SubjectID))

	return &domain.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// Logout clears the stored refresh token. Access tokens already handed out
// stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clear refresh token for %q: %w", userID, err)
	}
	return nil
}

// Me returns the public profile of row.
func (s *AuthService) Me(row *domain.UserRow) *domain.User {
	return toUser(row, s.avatars)
}

// ListUsers returns a page of user profiles.
func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.list_users", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)

	rows, err := s.users.List(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, *toUser(&rows[i], s.avatars))
	}
	return users, nil
}

// ChangeRole sets the role of user id. The repository clears the stored
// refresh token in the same write so tokens carrying the old role stop
// refreshing.
func (s *AuthService) ChangeRole(ctx context.Context, id, role string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.change_role", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", id),
		attribute.String("role", role),
	))
	defer span.End()

	r, ok := domain.ParseRole(role)
	if !ok {
		return fmt.Errorf("role %q: %w", role, ErrInvalidInput)
	}

	found, err := s.users.UpdateRole(ctx, id, r)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update role for %q: %w", id, err)
	}
	if !found {
		return fmt.Errorf("change role of %q: %w", id, ErrUserNotFound)
	}

	logger.FromContext(ctx).Info().Str("target_user_id", id).Str("role", role).Msg("User role changed")
	return nil
}

// startSession issues a pair and stores its refresh token on the user row.
func (s *AuthService) startSession(ctx context.Context, userID, email string, role domain.Role) (token.Pair, error) {
	pair, err := s.issuer.IssuePair(userID, email, role)
	if err != nil {
		return token.Pair{}, err
	}
	if err := s.users.SetRefreshToken(ctx, userID, &pair.RefreshToken); err != nil {
		return token.Pair{}, fmt.Errorf("store refresh token for %q: %w", userID, err)
	}
	return pair, nil
}

// checkThrottle counts a login attempt. A throttle outage lets the attempt through.
func (s *AuthService) checkThrottle(ctx context.Context, email string) error {
	if s.throttle == nil {
		return nil
	}
	allowed, err := s.throttle.Hit(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Login throttle unavailable")
		return nil
	}
	if !allowed {
		logger.FromContext(ctx).Warn().Str("email", email).Msg("Login throttled")
		return fmt.Errorf("login %q: %w", email, ErrTooManyAttempts)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUser(row *domain.UserRow, avatars domain.AvatarStore) *domain.User {
	u := &domain.User{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		Role:       row.Role,
		Gender:     row.Gender,
		IsVerified: row.IsVerified,
		CreatedAt:  row.CreatedAt,
		LastLogin:  row.LastLogin,
	}
	if row.AvatarKey != nil && avatars != nil {
		u.AvatarURL = avatars.PublicURL(*row.AvatarKey)
	}
	return u
}
