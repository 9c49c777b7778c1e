package commission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, vendorID uuid.UUID) (*Setting, error) {
	var s Setting
	err := r.db.GetContext(ctx, &s, `
		SELECT user_id, rate, model_type, updated_at
		FROM commission_settings
		WHERE user_id = $1
	`, vendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Upsert(ctx context.Context, setting *Setting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO commission_settings (user_id, rate, model_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET rate = EXCLUDED.rate, model_type = EXCLUDED.model_type, updated_at = now()
	`, setting.UserID, setting.Rate, string(setting.Model))
	return err
}
