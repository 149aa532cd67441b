package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/errors"
)

// UserRepository implements user.Repository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) user.Repository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, full_name, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var fullName sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&u.ID, &u.Email, &fullName, &u.PasswordHash, &u.Role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	stamp(&u.CreatedAt, time.Now())
	u.UpdatedAt = u.CreatedAt

	query := `
		INSERT INTO users (id, email, full_name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.Role, u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return errors.Conflict("Email already registered")
	}
	if err != nil {
		return errors.DatabaseError("Failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return u, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().Truncate(time.Second).UTC()

	query := `
		UPDATE users
		SET email = $1, full_name = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		u.Email, u.FullName, u.PasswordHash, u.Role, u.UpdatedAt.Unix(), u.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("User")
	}
	return nil
}

// Delete deletes a user; subscriptions, documents and payments cascade
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("User")
	}
	return nil
}

// List retrieves users with pagination, newest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count users", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	users, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAll retrieves every user, newest first
func (r *UserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
}

func (r *UserRepository) query(ctx context.Context, query string, args ...interface{}) ([]*user.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list users", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list users", err)
	}
	return users, nil
}
