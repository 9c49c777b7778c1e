package transaction

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// NewReference builds a fresh reference of the shape TYPE_millis_random.
// Uniqueness is enforced by the database; a collision is a hard failure.
func NewReference(t Type) string {
	return fmt.Sprintf("%s_%d_%s", t, time.Now().UnixMilli(), randSuffix())
}

func randSuffix() string {
	b := make([]byte, 3)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Create inserts a new transaction, generating a reference if unset
func (r *Repository) Create(ctx context.Context, trx *Transaction) error {
	return r.create(ctx, r.db, trx)
}

// CreateTx inserts a new transaction inside the caller's transaction
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, trx *Transaction) error {
	return r.create(ctx, tx, trx)
}

func (r *Repository) create(ctx context.Context, q sqlx.ExtContext, trx *Transaction) error {
	if trx.Reference == "" {
		trx.Reference = NewReference(trx.Type)
	}
	if trx.ID == uuid.Nil {
		trx.ID = uuid.New()
	}
	if trx.Status == "" {
		trx.Status = StatusPending
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions
			(id, reference, user_id, type, amount, commission, vendor_cost,
			 recipient, network_id, plan_id, status, provider_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, trx.ID, trx.Reference, trx.UserID, string(trx.Type), trx.Amount,
		trx.Commission, trx.VendorCost, trx.Recipient, trx.NetworkID,
		trx.PlanID, string(trx.Status), jsonArg(trx.ProviderResponse))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetByReference fetches a transaction by its idempotency key
func (r *Repository) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	var trx Transaction
	err := r.db.GetContext(ctx, &trx, `
		SELECT id, reference, user_id, type, amount, commission, vendor_cost,
		       recipient, network_id, plan_id, status, provider_response,
		       created_at, updated_at
		FROM transactions
		WHERE reference = $1
	`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// ListForUser returns a party's transactions, newest first
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	var trxs []Transaction
	err := r.db.SelectContext(ctx, &trxs, `
		SELECT id, reference, user_id, type, amount, commission, vendor_cost,
		       recipient, network_id, plan_id, status, provider_response,
		       created_at, updated_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	return trxs, err
}

// ListPending returns the oldest pending transactions first, so no stuck
// transaction starves behind newer ones.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Transaction, error) {
	var trxs []Transaction
	err := r.db.SelectContext(ctx, &trxs, `
		SELECT id, reference, user_id, type, amount, commission, vendor_cost,
		       recipient, network_id, plan_id, status, provider_response,
		       created_at, updated_at
		FROM transactions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, StatusPending, limit)
	return trxs, err
}

// Filters narrows admin transaction listings
type Filters struct {
	UserID   *uuid.UUID
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// ListAll returns filtered transactions for admin use, newest first
func (r *Repository) ListAll(ctx context.Context, filters Filters) ([]Transaction, int, error) {
	where := "1=1"
	args := []interface{}{}

	addArg := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if filters.UserID != nil {
		addArg("user_id =", *filters.UserID)
	}
	if filters.Status != nil {
		addArg("status =", string(*filters.Status))
	}
	if filters.DateFrom != nil {
		addArg("created_at >=", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		addArg("created_at <=", *filters.DateTo)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM transactions WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, reference, user_id, type, amount, commission, vendor_cost,
		       recipient, network_id, plan_id, status, provider_response,
		       created_at, updated_at
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, where, limit, filters.Offset)

	var trxs []Transaction
	if err := r.db.SelectContext(ctx, &trxs, query, args...); err != nil {
		return nil, 0, err
	}
	return trxs, total, nil
}

// MarkTerminalTx transitions PENDING -> status inside the caller's
// transaction. Returns false when the row was already terminal: the caller
// lost the settlement race and must not touch any wallet.
func (r *Repository) MarkTerminalTx(ctx context.Context, tx *sqlx.Tx, reference string, status Status, providerResponse []byte) (bool, error) {
	if status != StatusSuccess && status != StatusFailed {
		return false, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, provider_response = COALESCE($3, provider_response), updated_at = now()
		WHERE reference = $1 AND status = $4
	`, reference, string(status), jsonArg(providerResponse), StatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SaveProviderResponse persists the latest provider reply without touching
// the status. Used while a transaction is still in flight.
func (r *Repository) SaveProviderResponse(ctx context.Context, reference string, providerResponse []byte) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET provider_response = $2, updated_at = now()
		WHERE reference = $1
	`, reference, jsonArg(providerResponse))
	return err
}

// jsonArg passes raw JSON as text; lib/pq would hex-encode a plain []byte,
// which jsonb columns reject.
func jsonArg(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
