package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

const userColumns = `id::text, name, email, password_hash, role, gender, refresh_token,
	avatar_key, is_verified, is_active, created_at, last_login`

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.UserRow, error) {
	var (
		u    domain.UserRow
		role string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Gender, &u.RefreshToken,
		&u.AvatarKey, &u.IsVerified, &u.IsActive, &u.CreatedAt, &u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// FindByEmail returns the user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) FindByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindByID returns the user with the given id.
// Returns (nil, nil) when no user is found or id is not a uuid.
func (r *PgxUserRepository) FindByID(ctx context.Context, id string) (*domain.UserRow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// ExistsByEmail returns true when a user with the given email already exists.
func (r *PgxUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new user and returns the generated user ID.
func (r *PgxUserRepository) Create(ctx context.Context, name, email, passwordHash string) (string, error) {
	query := `INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`

	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx, query, id, name, email, passwordHash); err != nil {
		return "", mapWriteError(fmt.Errorf("insert user: %w", err))
	}
	return id, nil
}

// SetRefreshToken overwrites the stored refresh token. nil clears it.
func (r *PgxUserRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE users SET refresh_token = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, token)
	return err
}

// SwapRefreshToken replaces the stored refresh token only if it still equals current.
func (r *PgxUserRepository) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	query := `UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`

	tag, err := r.pool.Exec(ctx, query, id, current, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateLastLogin sets the last_login timestamp to now for the given user.
func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// SetAvatarKey stores the avatar object key. nil clears it.
func (r *PgxUserRepository) SetAvatarKey(ctx context.Context, id string, key *string) error {
	query := `UPDATE users SET avatar_key = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, key)
	return err
}

// UpdateRole changes the role, revokes the refresh token and reports whether
// the user exists.
func (r *PgxUserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	query := `UPDATE users SET role = $2, refresh_token = NULL WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List returns users ordered by creation time.
func (r *PgxUserRepository) List(ctx context.Context, limit, offset int) ([]domain.UserRow, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserRow, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
