package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FirstAdmin returns the platform account that collects commission credits.
func (r *Repository) FirstAdmin(ctx context.Context) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, RoleAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAdmin
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListVendors returns a page of vendor accounts, newest first, with an
// optional case-insensitive email/name search.
func (r *Repository) ListVendors(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	where := `role = $1`
	args := []interface{}{RoleVendor}
	if search != "" {
		where += ` AND (email ILIKE $2 OR name ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM users WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset)

	var vendors []User
	if err := r.db.SelectContext(ctx, &vendors, query, args...); err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}
