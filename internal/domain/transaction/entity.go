package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Type of the unit of work
type Type string

const (
	TypeAirtime      Type = "AIRTIME"
	TypeDataBundle   Type = "DATABUNDLE"
	TypeFundTransfer Type = "FUND_TRANSFER"
)

// Status lifecycle: PENDING -> SUCCESS | FAILED, terminal once reached
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Transaction records one purchase attempt or fund transfer. The reference
// is the globally unique idempotency key, assigned at creation and never
// reused; the row is never deleted.
type Transaction struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Reference string    `db:"reference" json:"reference"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Type      Type      `db:"type" json:"type"`
	// Amount is the base purchase amount the recipient receives
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// Commission is the platform's cut, absent for fund transfers
	Commission decimal.NullDecimal `db:"commission" json:"commission"`
	// VendorCost is the exact amount debited when funds were reserved; a
	// refund restores precisely this, whatever the commission model was.
	VendorCost decimal.Decimal `db:"vendor_cost" json:"vendor_cost"`
	Recipient  *string         `db:"recipient" json:"recipient,omitempty"`
	NetworkID  *string         `db:"network_id" json:"network_id,omitempty"`
	PlanID     *string         `db:"plan_id" json:"plan_id,omitempty"`
	Status     Status          `db:"status" json:"status"`
	// ProviderResponse is the last raw provider reply, kept for audit
	ProviderResponse types.JSONText `db:"provider_response" json:"provider_response,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the transaction has been settled
func (t *Transaction) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}
