package purchase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/commission"
	"github.com/topupgh/topup-api/internal/domain/purchase"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/wallet"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
)

type fakeCosts struct {
	cost commission.Cost
	err  error
}

func (f *fakeCosts) ComputeVendorCost(_ context.Context, _ uuid.UUID, _ decimal.Decimal) (commission.Cost, error) {
	return f.cost, f.err
}

type fakeWallets struct {
	balance decimal.Decimal
	debits  []decimal.Decimal
}

func (f *fakeWallets) Balance(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeWallets) Debit(_ context.Context, _ uuid.UUID, amount decimal.Decimal, _ string) (*wallet.Wallet, error) {
	if f.balance.LessThan(amount) {
		return nil, wallet.ErrInsufficientFunds
	}
	f.balance = f.balance.Sub(amount)
	f.debits = append(f.debits, amount)
	return &wallet.Wallet{Balance: f.balance}, nil
}

type fakeTrxs struct {
	created []*transaction.Transaction
}

func (f *fakeTrxs) Create(_ context.Context, trx *transaction.Transaction) error {
	if trx.Reference == "" {
		trx.Reference = transaction.NewReference(trx.Type)
	}
	if trx.Status == "" {
		trx.Status = transaction.StatusPending
	}
	f.created = append(f.created, trx)
	return nil
}

func (f *fakeTrxs) GetByReference(_ context.Context, reference string) (*transaction.Transaction, error) {
	for _, trx := range f.created {
		if trx.Reference == reference {
			return trx, nil
		}
	}
	return nil, transaction.ErrNotFound
}

func (f *fakeTrxs) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, trx := range f.created {
		if trx.UserID == userID && len(out) < limit {
			out = append(out, *trx)
		}
	}
	return out, nil
}

type fakeProvider struct {
	resp *tpp.Response
	err  error
}

func (f *fakeProvider) AirtimeTopup(_ context.Context, _ tpp.TopupRequest) (*tpp.Response, error) {
	return f.resp, f.err
}

func (f *fakeProvider) DataBundle(_ context.Context, _ tpp.BundleRequest) (*tpp.Response, error) {
	return f.resp, f.err
}

func (f *fakeProvider) DataBundleList(_ context.Context, _ string) ([]byte, error) {
	return []byte(`[]`), nil
}

type fakeSettler struct {
	successes []string
	pendings  []string
	err       error
}

func (f *fakeSettler) Success(_ context.Context, trx *transaction.Transaction, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.successes = append(f.successes, trx.Reference)
	return nil
}

func (f *fakeSettler) StillPending(_ context.Context, reference string, _ []byte) error {
	f.pendings = append(f.pendings, reference)
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendSMS(_ context.Context, recipient, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient)
	return nil
}

type fixture struct {
	costs    *fakeCosts
	wallets  *fakeWallets
	trxs     *fakeTrxs
	provider *fakeProvider
	settler  *fakeSettler
	notifier *fakeNotifier
	svc      *purchase.Service
}

func newFixture(balance string) *fixture {
	f := &fixture{
		costs: &fakeCosts{cost: commission.Cost{
			VendorPays: decimal.RequireFromString("98.00"),
			Commission: decimal.RequireFromString("2.00"),
		}},
		wallets:  &fakeWallets{balance: decimal.RequireFromString(balance)},
		trxs:     &fakeTrxs{},
		provider: &fakeProvider{},
		settler:  &fakeSettler{},
		notifier: &fakeNotifier{},
	}
	f.svc = purchase.NewService(f.costs, f.wallets, f.trxs, f.provider, f.settler, f.notifier)
	return f
}

func airtimeReq() purchase.AirtimeRequest {
	return purchase.AirtimeRequest{
		NetworkID:   "MTN",
		PhoneNumber: "0241234567",
		Amount:      decimal.RequireFromString("100"),
	}
}

func TestBuyAirtimeImmediateSuccess(t *testing.T) {
	f := newFixture("150")
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusSuccess, Raw: []byte(`{"status-code":"00"}`)}

	result, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != transaction.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", result.Status)
	}
	if len(f.wallets.debits) != 1 || !f.wallets.debits[0].Equal(decimal.RequireFromString("98.00")) {
		t.Errorf("expected single debit of 98.00, got %v", f.wallets.debits)
	}
	if len(f.settler.successes) != 1 {
		t.Errorf("expected one settlement, got %d", len(f.settler.successes))
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != "0241234567" {
		t.Errorf("expected SMS to recipient, got %v", f.notifier.sent)
	}
	if len(f.trxs.created) != 1 {
		t.Fatalf("expected one transaction, got %d", len(f.trxs.created))
	}
	trx := f.trxs.created[0]
	if !trx.VendorCost.Equal(decimal.RequireFromString("98.00")) {
		t.Errorf("vendor cost: expected 98.00, got %s", trx.VendorCost)
	}
	if !trx.Commission.Decimal.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("commission: expected 2.00, got %s", trx.Commission.Decimal)
	}
}

func TestBuyAirtimeProviderErrorLeavesPending(t *testing.T) {
	f := newFixture("150")
	f.provider.err = tpp.ErrUnavailable

	result, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if err != nil {
		t.Fatalf("a provider failure is not a caller error: %v", err)
	}

	if result.Status != transaction.StatusPending {
		t.Errorf("expected PENDING, got %s", result.Status)
	}
	// Funds stay reserved: the provider may have delivered.
	if len(f.wallets.debits) != 1 {
		t.Errorf("debit must not be rolled back")
	}
	if len(f.settler.successes) != 0 {
		t.Errorf("nothing must settle on an ambiguous outcome")
	}
}

func TestBuyAirtimeProcessingLeavesPending(t *testing.T) {
	f := newFixture("150")
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusProcessing, Raw: []byte(`{"status-code":"09"}`)}

	result, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != transaction.StatusPending {
		t.Errorf("expected PENDING, got %s", result.Status)
	}
	if len(f.settler.pendings) != 1 {
		t.Errorf("provider response should be recorded for audit")
	}
}

func TestBuyAirtimeSettlementErrorLeavesPending(t *testing.T) {
	f := newFixture("150")
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusSuccess}
	f.settler.err = errors.New("db down")

	result, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transaction.StatusPending {
		t.Errorf("failed settlement must stay PENDING for the reconciler, got %s", result.Status)
	}
}

func TestBuyAirtimeInsufficientFunds(t *testing.T) {
	f := newFixture("50")

	_, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(f.trxs.created) != 0 {
		t.Errorf("no transaction may exist without a reservation")
	}
	if len(f.wallets.debits) != 0 {
		t.Errorf("no debit may happen without sufficient funds")
	}
}

func TestBuyAirtimeValidation(t *testing.T) {
	f := newFixture("150")

	bad := []purchase.AirtimeRequest{
		{PhoneNumber: "0241234567", Amount: decimal.RequireFromString("10")},
		{NetworkID: "MTN", Amount: decimal.RequireFromString("10")},
		{NetworkID: "MTN", PhoneNumber: "0241234567"},
		{NetworkID: "MTN", PhoneNumber: "0241234567", Amount: decimal.RequireFromString("-1")},
	}
	for i, req := range bad {
		if _, err := f.svc.BuyAirtime(context.Background(), uuid.New(), req); !errors.Is(err, purchase.ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestBuyDataBundleRequiresPlan(t *testing.T) {
	f := newFixture("150")

	req := purchase.BundleRequest{
		NetworkID:   "MTN",
		PhoneNumber: "0241234567",
		Amount:      decimal.RequireFromString("100"),
	}
	if _, err := f.svc.BuyDataBundle(context.Background(), uuid.New(), req); !errors.Is(err, purchase.ErrValidation) {
		t.Fatalf("expected ErrValidation without planId, got %v", err)
	}

	req.PlanID = "ishare_1gb"
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusSuccess}
	result, err := f.svc.BuyDataBundle(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transaction.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", result.Status)
	}
	if f.trxs.created[0].PlanID == nil || *f.trxs.created[0].PlanID != "ishare_1gb" {
		t.Errorf("plan id not recorded")
	}
}

func TestSMSFailureDoesNotFailPurchase(t *testing.T) {
	f := newFixture("150")
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusSuccess}
	f.notifier.err = errors.New("sms gateway down")

	result, err := f.svc.BuyAirtime(context.Background(), uuid.New(), airtimeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transaction.StatusSuccess {
		t.Errorf("SMS failure must not affect the purchase, got %s", result.Status)
	}
}

func TestTransactionByReferenceEnforcesOwnership(t *testing.T) {
	f := newFixture("150")
	f.provider.resp = &tpp.Response{StatusCode: tpp.StatusSuccess}

	ownerID := uuid.New()
	result, err := f.svc.BuyAirtime(context.Background(), ownerID, airtimeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.TransactionByReference(context.Background(), ownerID, result.Reference); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := f.svc.TransactionByReference(context.Background(), uuid.New(), result.Reference); !errors.Is(err, transaction.ErrNotFound) {
		t.Errorf("foreign lookup must report not found, got %v", err)
	}
}
