package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/commission"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
)

// ProviderBalancer reports the platform's remaining float with the external
// top-up provider.
type ProviderBalancer interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Service implements platform administration: commission management, direct
// vendor funding and cross-vendor reporting.
type Service struct {
	db          *sqlx.DB
	users       *user.Repository
	wallets     *wallet.Repository
	commissions *commission.Service
	trxs        *transaction.Repository
	provider    ProviderBalancer
}

func NewService(
	db *sqlx.DB,
	users *user.Repository,
	wallets *wallet.Repository,
	commissions *commission.Service,
	trxs *transaction.Repository,
	provider ProviderBalancer,
) *Service {
	return &Service{
		db:          db,
		users:       users,
		wallets:     wallets,
		commissions: commissions,
		trxs:        trxs,
		provider:    provider,
	}
}

// VendorSummary is a vendor row enriched with its current wallet balance.
type VendorSummary struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// FundVendor moves funds from the admin's wallet straight into a vendor's
// wallet and records a FUND_TRANSFER transaction, all in one database
// transaction. The external provider is never involved.
func (s *Service) FundVendor(ctx context.Context, adminID, vendorID uuid.UUID, amount decimal.Decimal) (*transaction.Transaction, error) {
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	vendor, err := s.users.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Role != user.RoleVendor {
		return nil, user.ErrNotVendor
	}

	reference := transaction.NewReference(transaction.TypeFundTransfer)
	recipient := vendorID.String()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.wallets.TransferTx(ctx, tx, adminID, vendorID, amount, "Fund transfer: "+reference); err != nil {
		return nil, err
	}

	trx := &transaction.Transaction{
		Reference:  reference,
		UserID:     adminID,
		Type:       transaction.TypeFundTransfer,
		Status:     transaction.StatusSuccess,
		Amount:     amount,
		VendorCost: amount,
		Recipient:  &recipient,
	}
	if err := s.trxs.CreateTx(ctx, tx, trx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	log.Info().
		Str("reference", reference).
		Str("admin_id", adminID.String()).
		Str("vendor_id", vendorID.String()).
		Str("amount", amount.String()).
		Msg("vendor wallet funded")

	return trx, nil
}

// SetCommission updates a vendor's commission setting after verifying the
// target is actually a vendor.
func (s *Service) SetCommission(ctx context.Context, vendorID uuid.UUID, rate decimal.Decimal, model commission.Model) (*commission.Setting, error) {
	vendor, err := s.users.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Role != user.RoleVendor {
		return nil, user.ErrNotVendor
	}
	return s.commissions.Set(ctx, vendorID, rate, model)
}

// GetCommission returns the vendor's effective commission setting, falling
// back to the platform default when none has been configured.
func (s *Service) GetCommission(ctx context.Context, vendorID uuid.UUID) (*commission.Setting, error) {
	return s.commissions.GetSetting(ctx, vendorID)
}

// ListVendors returns vendors matching the search term, with balances.
func (s *Service) ListVendors(ctx context.Context, search string, page, limit int) ([]VendorSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	vendors, total, err := s.users.ListVendors(ctx, search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, len(vendors))
	for i, v := range vendors {
		ids[i] = v.ID
	}
	balances, err := s.wallets.BalancesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]VendorSummary, len(vendors))
	for i, v := range vendors {
		summaries[i] = VendorSummary{
			ID:        v.ID,
			Email:     v.Email,
			Name:      v.Name,
			Balance:   balances[v.ID],
			CreatedAt: v.CreatedAt,
		}
	}
	return summaries, total, nil
}

// ListTransactions returns transactions across all parties with optional
// filters applied.
func (s *Service) ListTransactions(ctx context.Context, filters transaction.Filters) ([]transaction.Transaction, int, error) {
	if filters.Limit < 1 || filters.Limit > 100 {
		filters.Limit = 20
	}
	return s.trxs.ListAll(ctx, filters)
}

// WalletOf returns any party's wallet, creating an empty one if needed.
func (s *Service) WalletOf(ctx context.Context, partyID uuid.UUID) (*wallet.Wallet, error) {
	if _, err := s.users.GetByID(ctx, partyID); err != nil {
		return nil, err
	}
	return s.wallets.GetOrCreate(ctx, partyID)
}

// ProviderBalance reports the remaining float with the external provider.
func (s *Service) ProviderBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.provider.Balance(ctx)
}
