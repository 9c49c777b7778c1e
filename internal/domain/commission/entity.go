package commission

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Model determines how a vendor's cost relates to the base amount
type Model string

const (
	// ModelDiscount: the vendor keeps the spread, paying base minus commission
	ModelDiscount Model = "DISCOUNT"
	// ModelMarkup: the vendor pays the commission on top of the base amount
	ModelMarkup Model = "MARKUP"
	// ModelFlat: rate is a fixed currency fee deducted from the base amount
	ModelFlat Model = "FLAT"
)

// Setting is a vendor's configured commission. At most one per vendor;
// vendors without a setting fall back to the platform default.
type Setting struct {
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Rate      decimal.Decimal `db:"rate" json:"rate"`
	Model     Model           `db:"model_type" json:"model"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Cost is the outcome of a vendor cost computation
type Cost struct {
	// VendorPays is the amount debited from the vendor's wallet
	VendorPays decimal.Decimal `json:"vendor_pays"`
	// Commission is the platform's cut, credited on successful settlement
	Commission decimal.Decimal `json:"commission"`
}
