package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsevote/backend/internal/models"
)

var (
	// ErrHandleTaken is returned when registering an already-used handle.
	ErrHandleTaken = errors.New("handle already registered")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user. The unique constraint on handle maps to
// ErrHandleTaken so registration conflicts stay typed.
func (r *Repository) Create(ctx context.Context, handle, passwordHash, email, fullName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (handle, password_hash, email, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, handle, password_hash, email, full_name, role, created_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, handle, passwordHash, email, fullName, string(role)).
		Scan(&u.ID, &u.Handle, &u.Password, &u.Email, &u.FullName, &u.Role, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return nil, ErrHandleTaken
		}
		return nil, err
	}
	return &u, nil
}

// GetByHandle returns a user by handle.
func (r *Repository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	const q = `SELECT id, handle, password_hash, email, full_name, role, created_at
		FROM users WHERE handle = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, handle))
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, handle, password_hash, email, full_name, role, created_at
		FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *Repository) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Handle, &u.Password, &u.Email, &u.FullName, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// pgerrUniqueViolation is the PostgreSQL error code for unique_violation.
const pgerrUniqueViolation = "23505"
