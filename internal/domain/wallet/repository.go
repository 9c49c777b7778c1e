package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureWalletTx creates a zero-balance wallet if none exists, inside the
// caller's transaction.
func (r *Repository) EnsureWalletTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

// GetOrCreate returns the party's wallet, creating a zero-balance one on
// first access.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return nil, err
	}

	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// lockWallet takes the row lock serializing all mutations of one wallet.
// With create=true the wallet is created first, so the lock always lands.
func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, create bool) (decimal.Decimal, error) {
	if create {
		if err := r.EnsureWalletTx(ctx, tx, userID); err != nil {
			return decimal.Zero, err
		}
	}

	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrWalletNotFound
	}
	return balance, err
}

func (r *Repository) setBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now() WHERE user_id = $2
	`, balance, userID)
	return err
}

func (r *Repository) insertMovement(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, direction Direction, amount, balanceAfter decimal.Decimal, metadata string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_movements (user_id, direction, amount, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, string(direction), amount, balanceAfter, metadata)
	return err
}

// CreditTx increments the balance and appends the paired movement inside the
// caller's transaction. Creates the wallet if absent.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	balance, err := r.lockWallet(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	next := balance.Add(amount)
	if err := r.setBalance(ctx, tx, userID, next); err != nil {
		return nil, err
	}
	if err := r.insertMovement(ctx, tx, userID, DirectionCredit, amount, next, metadata); err != nil {
		return nil, err
	}

	return &Wallet{UserID: userID, Balance: next}, nil
}

// DebitTx decrements the balance inside the caller's transaction. The balance
// check happens under the same row lock as the decrement, so concurrent
// debits cannot overdraw.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	balance, err := r.lockWallet(ctx, tx, userID, false)
	if err != nil {
		return nil, err
	}

	next := balance.Sub(amount)
	if next.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if err := r.setBalance(ctx, tx, userID, next); err != nil {
		return nil, err
	}
	if err := r.insertMovement(ctx, tx, userID, DirectionDebit, amount, next, metadata); err != nil {
		return nil, err
	}

	return &Wallet{UserID: userID, Balance: next}, nil
}

// Credit applies a credit in its own transaction
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.CreditTx(ctx, tx, userID, amount, metadata)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// Debit applies a debit in its own transaction
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.DebitTx(ctx, tx, userID, amount, metadata)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// TransferTx moves funds between two wallets inside the caller's transaction.
// Rows are locked in UUID order so two opposing transfers cannot deadlock.
func (r *Repository) TransferTx(ctx context.Context, tx *sqlx.Tx, fromID, toID uuid.UUID, amount decimal.Decimal, metadata string) error {
	first, second := fromID, toID
	if second.String() < first.String() {
		first, second = second, first
	}

	// The destination wallet may not exist yet; the source must.
	if err := r.EnsureWalletTx(ctx, tx, toID); err != nil {
		return err
	}

	balances := make(map[uuid.UUID]decimal.Decimal, 2)
	for _, id := range []uuid.UUID{first, second} {
		balance, err := r.lockWallet(ctx, tx, id, false)
		if err != nil {
			return err
		}
		balances[id] = balance
	}

	fromNext := balances[fromID].Sub(amount)
	if fromNext.IsNegative() {
		return ErrInsufficientFunds
	}
	toNext := balances[toID].Add(amount)

	if err := r.setBalance(ctx, tx, fromID, fromNext); err != nil {
		return err
	}
	if err := r.insertMovement(ctx, tx, fromID, DirectionDebit, amount, fromNext, metadata); err != nil {
		return err
	}
	if err := r.setBalance(ctx, tx, toID, toNext); err != nil {
		return err
	}
	return r.insertMovement(ctx, tx, toID, DirectionCredit, amount, toNext, metadata)
}

// BalancesFor returns current balances for a set of parties. Parties with no
// wallet yet are simply absent from the result.
func (r *Repository) BalancesFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	var rows []struct {
		UserID  uuid.UUID       `db:"user_id"`
		Balance decimal.Decimal `db:"balance"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT user_id, balance FROM wallets WHERE user_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		balances[row.UserID] = row.Balance
	}
	return balances, nil
}

// ListMovements returns the wallet's audit trail, newest first
func (r *Repository) ListMovements(ctx context.Context, userID uuid.UUID, limit int) ([]Movement, error) {
	var movements []Movement
	err := r.db.SelectContext(ctx, &movements, `
		SELECT id, user_id, direction, amount, balance_after, metadata, created_at
		FROM wallet_movements
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	return movements, err
}
