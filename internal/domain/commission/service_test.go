package commission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/commission"
)

type fakeStore struct {
	settings map[uuid.UUID]*commission.Setting
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: make(map[uuid.UUID]*commission.Setting)}
}

func (f *fakeStore) Get(_ context.Context, userID uuid.UUID) (*commission.Setting, error) {
	s, ok := f.settings[userID]
	if !ok {
		return nil, commission.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Upsert(_ context.Context, setting *commission.Setting) error {
	f.settings[setting.UserID] = setting
	return nil
}

func seed(store *fakeStore, vendorID uuid.UUID, rate string, model commission.Model) {
	r, _ := decimal.NewFromString(rate)
	store.settings[vendorID] = &commission.Setting{UserID: vendorID, Rate: r, Model: model}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestComputeVendorCostDiscount(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	seed(store, vendorID, "0.02", commission.ModelDiscount)

	svc := commission.NewService(store)

	cost, err := svc.ComputeVendorCost(context.Background(), vendorID, dec(t, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cost.Commission.Equal(dec(t, "2.00")) {
		t.Errorf("commission: expected 2.00, got %s", cost.Commission)
	}
	if !cost.VendorPays.Equal(dec(t, "98.00")) {
		t.Errorf("vendor pays: expected 98.00, got %s", cost.VendorPays)
	}
}

func TestComputeVendorCostMarkup(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	seed(store, vendorID, "0.05", commission.ModelMarkup)

	svc := commission.NewService(store)

	cost, err := svc.ComputeVendorCost(context.Background(), vendorID, dec(t, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cost.Commission.Equal(dec(t, "5.00")) {
		t.Errorf("commission: expected 5.00, got %s", cost.Commission)
	}
	if !cost.VendorPays.Equal(dec(t, "105.00")) {
		t.Errorf("vendor pays: expected 105.00, got %s", cost.VendorPays)
	}
}

func TestComputeVendorCostFlat(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	seed(store, vendorID, "3.50", commission.ModelFlat)

	svc := commission.NewService(store)

	cost, err := svc.ComputeVendorCost(context.Background(), vendorID, dec(t, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cost.Commission.Equal(dec(t, "3.50")) {
		t.Errorf("commission: expected 3.50, got %s", cost.Commission)
	}
	if !cost.VendorPays.Equal(dec(t, "96.50")) {
		t.Errorf("vendor pays: expected 96.50, got %s", cost.VendorPays)
	}
}

func TestComputeVendorCostDefaultSetting(t *testing.T) {
	// Vendor with no configured setting gets the platform default:
	// 2% DISCOUNT.
	svc := commission.NewService(newFakeStore())

	cost, err := svc.ComputeVendorCost(context.Background(), uuid.New(), dec(t, "50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cost.Commission.Equal(dec(t, "1.00")) {
		t.Errorf("commission: expected 1.00, got %s", cost.Commission)
	}
	if !cost.VendorPays.Equal(dec(t, "49.00")) {
		t.Errorf("vendor pays: expected 49.00, got %s", cost.VendorPays)
	}
}

func TestComputeVendorCostRounding(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	seed(store, vendorID, "0.0333", commission.ModelDiscount)

	svc := commission.NewService(store)

	// 7.77 * 0.0333 = 0.2587..., rounds half away from zero to 0.26.
	cost, err := svc.ComputeVendorCost(context.Background(), vendorID, dec(t, "7.77"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cost.Commission.Equal(dec(t, "0.26")) {
		t.Errorf("commission: expected 0.26, got %s", cost.Commission)
	}
	if !cost.VendorPays.Equal(dec(t, "7.51")) {
		t.Errorf("vendor pays: expected 7.51, got %s", cost.VendorPays)
	}
	if !cost.VendorPays.Add(cost.Commission).Equal(dec(t, "7.77")) {
		t.Errorf("split must sum back to the base amount")
	}
}

func TestComputeVendorCostUnknownModel(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	store.settings[vendorID] = &commission.Setting{
		UserID: vendorID,
		Rate:   dec(t, "0.02"),
		Model:  commission.Model("PERCENTAGE"),
	}

	svc := commission.NewService(store)

	_, err := svc.ComputeVendorCost(context.Background(), vendorID, dec(t, "100"))
	if !errors.Is(err, commission.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestComputeVendorCostNonPositiveAmount(t *testing.T) {
	svc := commission.NewService(newFakeStore())

	for _, amount := range []string{"0", "-1"} {
		_, err := svc.ComputeVendorCost(context.Background(), uuid.New(), dec(t, amount))
		if !errors.Is(err, commission.ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestSetValidation(t *testing.T) {
	svc := commission.NewService(newFakeStore())
	vendorID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Set(ctx, vendorID, dec(t, "0.3"), commission.ModelDiscount); err != nil {
		t.Errorf("0.3 DISCOUNT should be valid: %v", err)
	}
	if _, err := svc.Set(ctx, vendorID, dec(t, "0.6"), commission.ModelMarkup); !errors.Is(err, commission.ErrInvalidRate) {
		t.Errorf("0.6 MARKUP: expected ErrInvalidRate, got %v", err)
	}
	if _, err := svc.Set(ctx, vendorID, dec(t, "-0.1"), commission.ModelDiscount); !errors.Is(err, commission.ErrInvalidRate) {
		t.Errorf("negative DISCOUNT: expected ErrInvalidRate, got %v", err)
	}

	// FLAT is a currency amount, not a fraction: any positive value works.
	if _, err := svc.Set(ctx, vendorID, dec(t, "3.50"), commission.ModelFlat); err != nil {
		t.Errorf("3.50 FLAT should be valid: %v", err)
	}
	if _, err := svc.Set(ctx, vendorID, dec(t, "0"), commission.ModelFlat); !errors.Is(err, commission.ErrInvalidRate) {
		t.Errorf("zero FLAT: expected ErrInvalidRate, got %v", err)
	}

	if _, err := svc.Set(ctx, vendorID, dec(t, "0.1"), commission.Model("BOGUS")); !errors.Is(err, commission.ErrUnknownModel) {
		t.Errorf("BOGUS model: expected ErrUnknownModel, got %v", err)
	}
}

func TestSetPersists(t *testing.T) {
	store := newFakeStore()
	svc := commission.NewService(store)
	vendorID := uuid.New()

	if _, err := svc.Set(context.Background(), vendorID, dec(t, "0.05"), commission.ModelMarkup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	setting, err := svc.GetSetting(context.Background(), vendorID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setting.Model != commission.ModelMarkup || !setting.Rate.Equal(dec(t, "0.05")) {
		t.Errorf("setting not persisted: %+v", setting)
	}
}
