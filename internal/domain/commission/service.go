package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Platform default applied to vendors without an explicit setting, so every
// vendor purchase has a defined cost from day one.
var (
	defaultRate  = decimal.NewFromFloat(0.02)
	defaultModel = ModelDiscount
)

// Fractional rates are capped at 50%; FLAT rates are currency amounts and
// only need to be positive.
var maxFractionalRate = decimal.NewFromFloat(0.5)

// SettingStore is the persistence the engine needs
type SettingStore interface {
	Get(ctx context.Context, vendorID uuid.UUID) (*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
}

type Service struct {
	store SettingStore
}

func NewService(store SettingStore) *Service {
	return &Service{store: store}
}

// GetSetting returns the vendor's setting, or the platform default if none
// is configured.
func (s *Service) GetSetting(ctx context.Context, vendorID uuid.UUID) (*Setting, error) {
	setting, err := s.store.Get(ctx, vendorID)
	if errors.Is(err, ErrNotFound) {
		return &Setting{UserID: vendorID, Rate: defaultRate, Model: defaultModel}, nil
	}
	if err != nil {
		return nil, err
	}
	return setting, nil
}

// ComputeVendorCost returns what the vendor pays and what the platform earns
// for a purchase of baseAmount.
//
// Commission is rounded first (half away from zero, 2dp) and VendorPays is
// derived from the rounded commission; rounding the two legs independently
// can disagree by a cent and break reconciliation.
func (s *Service) ComputeVendorCost(ctx context.Context, vendorID uuid.UUID, baseAmount decimal.Decimal) (Cost, error) {
	if baseAmount.Sign() <= 0 {
		return Cost{}, ErrInvalidAmount
	}

	setting, err := s.GetSetting(ctx, vendorID)
	if err != nil {
		return Cost{}, err
	}

	var commission, vendorPays decimal.Decimal
	switch setting.Model {
	case ModelDiscount:
		commission = baseAmount.Mul(setting.Rate).Round(2)
		vendorPays = baseAmount.Sub(commission)
	case ModelMarkup:
		commission = baseAmount.Mul(setting.Rate).Round(2)
		vendorPays = baseAmount.Add(commission)
	case ModelFlat:
		// Rate is a flat currency fee under this model
		commission = setting.Rate.Round(2)
		vendorPays = baseAmount.Sub(commission)
	default:
		// Bad admin input surfaces immediately instead of silently defaulting
		return Cost{}, fmt.Errorf("%w: %q", ErrUnknownModel, setting.Model)
	}

	return Cost{VendorPays: vendorPays, Commission: commission}, nil
}

// Set updates a vendor's commission configuration
func (s *Service) Set(ctx context.Context, vendorID uuid.UUID, rate decimal.Decimal, model Model) (*Setting, error) {
	switch model {
	case ModelDiscount, ModelMarkup:
		if rate.IsNegative() || rate.GreaterThan(maxFractionalRate) {
			return nil, fmt.Errorf("%w: rate must be between 0 and 0.5", ErrInvalidRate)
		}
	case ModelFlat:
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("%w: flat fee must be greater than zero", ErrInvalidRate)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	setting := &Setting{UserID: vendorID, Rate: rate, Model: model}
	if err := s.store.Upsert(ctx, setting); err != nil {
		return nil, err
	}

	log.Info().
		Str("vendor_id", vendorID.String()).
		Str("rate", rate.String()).
		Str("model", string(model)).
		Msg("commission setting updated")
	return setting, nil
}
