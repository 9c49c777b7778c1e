// Package settlement owns the terminal transition of a transaction and the
// wallet adjustment that goes with it. The orchestrator's synchronous path
// and the reconciler both settle through here, and the status-gated update
// guarantees that exactly one of them performs the wallet adjustment for a
// given reference.
package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
)

type Service struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	trxs    *transaction.Repository
	users   *user.Repository
}

func NewService(db *sqlx.DB, wallets *wallet.Repository, trxs *transaction.Repository, users *user.Repository) *Service {
	return &Service{db: db, wallets: wallets, trxs: trxs, users: users}
}

// Success marks the transaction SUCCESS and routes the commission to the
// platform wallet, in one database transaction. The principal was already
// debited when funds were reserved; it is never moved again. Settling an
// already-terminal transaction is a no-op.
func (s *Service) Success(ctx context.Context, trx *transaction.Transaction, providerResponse []byte) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	won, err := s.trxs.MarkTerminalTx(ctx, tx, trx.Reference, transaction.StatusSuccess, providerResponse)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if trx.Commission.Valid && trx.Commission.Decimal.Sign() > 0 {
		admin, err := s.users.FirstAdmin(ctx)
		if err != nil {
			return fmt.Errorf("resolve platform account: %w", err)
		}
		meta := "Commission earned: " + trx.Reference
		if _, err := s.wallets.CreditTx(ctx, tx, admin.ID, trx.Commission.Decimal, meta); err != nil {
			return fmt.Errorf("credit commission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("reference", trx.Reference).
		Str("commission", trx.Commission.Decimal.String()).
		Msg("transaction settled SUCCESS")
	return nil
}

// Failure marks the transaction FAILED and refunds the exact amount debited
// at reservation time, in one database transaction. Settling an
// already-terminal transaction is a no-op.
func (s *Service) Failure(ctx context.Context, trx *transaction.Transaction, providerResponse []byte) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	won, err := s.trxs.MarkTerminalTx(ctx, tx, trx.Reference, transaction.StatusFailed, providerResponse)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if trx.VendorCost.Sign() > 0 {
		meta := "Refund for failed transaction: " + trx.Reference
		if _, err := s.wallets.CreditTx(ctx, tx, trx.UserID, trx.VendorCost, meta); err != nil {
			return fmt.Errorf("refund vendor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("reference", trx.Reference).
		Str("refund", trx.VendorCost.String()).
		Msg("transaction settled FAILED")
	return nil
}

// StillPending persists the latest provider reply for audit without touching
// status or wallets; the reconciler will look again next pass.
func (s *Service) StillPending(ctx context.Context, reference string, providerResponse []byte) error {
	return s.trxs.SaveProviderResponse(ctx, reference, providerResponse)
}
