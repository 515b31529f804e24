package domain

//go:generate mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks

import (
	"context"
	"time"
)

// Role is the closed set of account roles carried in session tokens.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// ParseRole returns the Role named by s and false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin, RoleModerator:
		return r, true
	}
	return "", false
}

// UserRow represents a user record returned from the database.
// It includes the password hash and the current refresh token so the Logic
// layer can verify credentials and enforce the single refresh-token slot.
type UserRow struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Gender       string
	RefreshToken *string
	AvatarKey    *string
	IsVerified   bool
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The logic layer depends on this interface only, never on SQL or pgx directly.
type UserRepository interface {
	// FindByEmail returns the user matching the given email.
	// Returns (nil, nil) when no user is found.
	FindByEmail(ctx context.Context, email string) (*UserRow, error)

	// FindByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	FindByID(ctx context.Context, id string) (*UserRow, error)

	// ExistsByEmail returns true when a user with the given email already exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new user with role RoleUser and returns the generated id.
	// Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, name, email, passwordHash string) (string, error)

	// SetRefreshToken overwrites the stored refresh token. nil clears it.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// SwapRefreshToken replaces the stored refresh token with next only if the
	// stored value still equals current. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)

	// UpdateLastLogin sets the last_login timestamp to now for the given user.
	UpdateLastLogin(ctx context.Context, id string) error

	// SetAvatarKey stores the object key of the user's avatar. nil clears it.
	SetAvatarKey(ctx context.Context, id string, key *string) error

	// UpdateRole changes the user's role and clears the stored refresh token
	// in the same write. It reports whether the user exists.
	UpdateRole(ctx context.Context, id string, role Role) (bool, error)

	// List returns users ordered by creation time.
	List(ctx context.Context, limit, offset int) ([]UserRow, error)
}
