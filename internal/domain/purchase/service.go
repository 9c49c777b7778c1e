package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/commission"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/wallet"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
)

// ErrValidation covers bad purchase input; nothing has been persisted when
// it is returned.
var ErrValidation = errors.New("validation error")

// CostCalculator computes the vendor's cost split for a purchase
type CostCalculator interface {
	ComputeVendorCost(ctx context.Context, vendorID uuid.UUID, baseAmount decimal.Decimal) (commission.Cost, error)
}

// Wallets is the slice of the wallet service the orchestrator needs
type Wallets interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*wallet.Wallet, error)
}

// Transactions is the slice of the transaction ledger the orchestrator needs
type Transactions interface {
	Create(ctx context.Context, trx *transaction.Transaction) error
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]transaction.Transaction, error)
}

// Provider is the settlement provider surface used for purchases
type Provider interface {
	AirtimeTopup(ctx context.Context, req tpp.TopupRequest) (*tpp.Response, error)
	DataBundle(ctx context.Context, req tpp.BundleRequest) (*tpp.Response, error)
	DataBundleList(ctx context.Context, network string) ([]byte, error)
}

// Settler performs the terminal settlement of a transaction
type Settler interface {
	Success(ctx context.Context, trx *transaction.Transaction, providerResponse []byte) error
	StillPending(ctx context.Context, reference string, providerResponse []byte) error
}

// Notifier delivers best-effort purchase notifications
type Notifier interface {
	SendSMS(ctx context.Context, recipient, message string) error
}

// AirtimeRequest is a validated airtime purchase
type AirtimeRequest struct {
	NetworkID   string
	PhoneNumber string
	Amount      decimal.Decimal
}

// BundleRequest is a validated data bundle purchase
type BundleRequest struct {
	NetworkID   string
	PhoneNumber string
	PlanID      string
	Amount      decimal.Decimal
}

// Result is what the caller gets back: a reference to poll and the status as
// known right now. PENDING means the reconciler owns the outcome.
type Result struct {
	Reference string             `json:"reference"`
	Status    transaction.Status `json:"status"`
}

type Service struct {
	costs    CostCalculator
	wallets  Wallets
	trxs     Transactions
	provider Provider
	settler  Settler
	notifier Notifier
}

func NewService(costs CostCalculator, wallets Wallets, trxs Transactions, provider Provider, settler Settler, notifier Notifier) *Service {
	return &Service{
		costs:    costs,
		wallets:  wallets,
		trxs:     trxs,
		provider: provider,
		settler:  settler,
		notifier: notifier,
	}
}

// BuyAirtime runs a purchase end to end: cost split, funds reservation,
// pending ledger entry, provider call, immediate settlement when the
// provider confirms synchronously.
func (s *Service) BuyAirtime(ctx context.Context, vendorID uuid.UUID, req AirtimeRequest) (*Result, error) {
	if req.NetworkID == "" || req.PhoneNumber == "" || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: networkId, phoneNumber and positive amount required", ErrValidation)
	}

	trx, err := s.reserve(ctx, vendorID, transaction.TypeAirtime, req.Amount, req.PhoneNumber, req.NetworkID, "")
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.AirtimeTopup(ctx, tpp.TopupRequest{
		Recipient: req.PhoneNumber,
		Amount:    req.Amount,
		Network:   req.NetworkID,
		Reference: trx.Reference,
	})

	return s.conclude(ctx, trx, resp, err, fmt.Sprintf(
		"Your airtime top-up of GHS %s to %s was successful. Ref: %s",
		req.Amount.StringFixed(2), req.PhoneNumber, trx.Reference)), nil
}

// BuyDataBundle is the data bundle variant of BuyAirtime
func (s *Service) BuyDataBundle(ctx context.Context, vendorID uuid.UUID, req BundleRequest) (*Result, error) {
	if req.NetworkID == "" || req.PhoneNumber == "" || req.PlanID == "" || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: networkId, phoneNumber, planId and positive amount required", ErrValidation)
	}

	trx, err := s.reserve(ctx, vendorID, transaction.TypeDataBundle, req.Amount, req.PhoneNumber, req.NetworkID, req.PlanID)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.DataBundle(ctx, tpp.BundleRequest{
		Recipient: req.PhoneNumber,
		Amount:    req.Amount,
		Network:   req.NetworkID,
		DataCode:  req.PlanID,
		Reference: trx.Reference,
	})

	return s.conclude(ctx, trx, resp, err, fmt.Sprintf(
		"Your data bundle purchase for %s was successful. Ref: %s",
		req.PhoneNumber, trx.Reference)), nil
}

// reserve computes the cost, takes the funds and writes the PENDING ledger
// entry. Funds come out before the provider call: debit-on-success would
// leave a delivered purchase uncharged if the process crashed in between.
func (s *Service) reserve(ctx context.Context, vendorID uuid.UUID, trxType transaction.Type, amount decimal.Decimal, phoneNumber, networkID, planID string) (*transaction.Transaction, error) {
	cost, err := s.costs.ComputeVendorCost(ctx, vendorID, amount)
	if err != nil {
		return nil, err
	}

	// Fail fast before touching the provider; the debit below repeats this
	// check atomically.
	balance, err := s.wallets.Balance(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(cost.VendorPays) {
		return nil, wallet.ErrInsufficientFunds
	}

	if _, err := s.wallets.Debit(ctx, vendorID, cost.VendorPays, fmt.Sprintf("%s purchase for %s", trxType, phoneNumber)); err != nil {
		return nil, err
	}

	trx := &transaction.Transaction{
		UserID:     vendorID,
		Type:       trxType,
		Amount:     amount,
		Commission: decimal.NewNullDecimal(cost.Commission),
		VendorCost: cost.VendorPays,
		Recipient:  &phoneNumber,
		NetworkID:  &networkID,
		Status:     transaction.StatusPending,
	}
	if planID != "" {
		trx.PlanID = &planID
	}

	if err := s.trxs.Create(ctx, trx); err != nil {
		// Funds are already reserved; the movement log has the debit and the
		// error is loud. This must not reach the provider without a ledger row.
		log.Error().Err(err).
			Str("vendor_id", vendorID.String()).
			Str("vendor_cost", cost.VendorPays.String()).
			Msg("failed to record pending transaction after debit")
		return nil, err
	}

	return trx, nil
}

// conclude interprets the provider's immediate answer. Only an explicit
// success code settles now; everything else, including transport errors,
// stays PENDING for the reconciler. The debit is deliberately not rolled
// back on ambiguity: the provider may have delivered anyway.
func (s *Service) conclude(ctx context.Context, trx *transaction.Transaction, resp *tpp.Response, callErr error, smsText string) *Result {
	if callErr != nil {
		log.Warn().Err(callErr).
			Str("reference", trx.Reference).
			Msg("provider call failed, leaving transaction pending")
		return &Result{Reference: trx.Reference, Status: transaction.StatusPending}
	}

	if !resp.Success() {
		if err := s.settler.StillPending(ctx, trx.Reference, resp.Raw); err != nil {
			log.Error().Err(err).Str("reference", trx.Reference).Msg("failed to persist provider response")
		}
		return &Result{Reference: trx.Reference, Status: transaction.StatusPending}
	}

	if err := s.settler.Success(ctx, trx, resp.Raw); err != nil {
		log.Error().Err(err).Str("reference", trx.Reference).Msg("immediate settlement failed, reconciler will retry")
		return &Result{Reference: trx.Reference, Status: transaction.StatusPending}
	}

	if trx.Recipient != nil {
		if err := s.notifier.SendSMS(ctx, *trx.Recipient, smsText); err != nil {
			// Notifications never fail a purchase
			log.Warn().Err(err).Str("reference", trx.Reference).Msg("purchase notification failed")
		}
	}

	return &Result{Reference: trx.Reference, Status: transaction.StatusSuccess}
}

// Balance returns the vendor's wallet balance
func (s *Service) Balance(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return s.wallets.Balance(ctx, vendorID)
}

// Transactions returns the vendor's purchase history, newest first
func (s *Service) Transactions(ctx context.Context, vendorID uuid.UUID, limit int) ([]transaction.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.trxs.ListForUser(ctx, vendorID, limit)
}

// TransactionByReference returns one of the vendor's own transactions
func (s *Service) TransactionByReference(ctx context.Context, vendorID uuid.UUID, reference string) (*transaction.Transaction, error) {
	trx, err := s.trxs.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if trx.UserID != vendorID {
		return nil, transaction.ErrNotFound
	}
	return trx, nil
}

// BundlePlans passes the provider's plan catalogue through to the caller
func (s *Service) BundlePlans(ctx context.Context, network string) ([]byte, error) {
	if network == "" {
		return nil, fmt.Errorf("%w: network required", ErrValidation)
	}
	return s.provider.DataBundleList(ctx, network)
}
