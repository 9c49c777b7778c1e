package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction of a wallet movement
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Wallet is a party's internal spendable balance. Balance is a fixed-point
// decimal and never goes negative.
type Wallet struct {
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Movement is one row of the append-only audit log. Every balance mutation
// writes exactly one movement carrying the post-mutation balance, so the
// current balance can be rederived by replaying the log.
type Movement struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	Direction    Direction       `db:"direction" json:"direction"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	Metadata     string          `db:"metadata" json:"metadata"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
