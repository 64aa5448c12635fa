package ledger

import (
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Operation is the settled, USD-anchored record of one transaction.
// OperAmount is in minor units of CurrencyID, USDAmount in US cents.
type Operation struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CurrencyID uuid.UUID `db:"currency_id" json:"currency_id"`
	Kind       string    `db:"kind" json:"kind"`
	OperAmount int64     `db:"oper_amount" json:"oper_amount"`
	USDAmount  int64     `db:"usd_amount" json:"usd_amount"`
	Created    time.Time `db:"created" json:"created"`
}

// History is one leg of an operation as seen by a single wallet. Amount is
// non-negative; Direction carries the sign. PartnerName is captured at
// settlement time so later renames do not rewrite history.
type History struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	WalletID        uuid.UUID  `db:"wallet_id" json:"wallet_id"`
	OperationID     uuid.UUID  `db:"operation_id" json:"operation_id"`
	PartnerWalletID *uuid.UUID `db:"partner_wallet_id" json:"partner_wallet_id,omitempty"`
	PartnerName     *string    `db:"partner_name" json:"partner_name,omitempty"`
	Direction       Direction  `db:"direction" json:"direction"`
	Amount          int64      `db:"amount" json:"amount"`
	OperDate        time.Time  `db:"oper_date" json:"oper_date"`
}

// Entry is a history row joined with its operation, the shape consumed by
// reporting.
type Entry struct {
	HistoryID       uuid.UUID  `db:"history_id" json:"history_id"`
	OperationID     uuid.UUID  `db:"operation_id" json:"operation_id"`
	Kind            string     `db:"kind" json:"kind"`
	Direction       Direction  `db:"direction" json:"direction"`
	PartnerWalletID *uuid.UUID `db:"partner_wallet_id" json:"partner_wallet_id,omitempty"`
	PartnerName     *string    `db:"partner_name" json:"partner_name,omitempty"`
	OperDate        time.Time  `db:"oper_date" json:"oper_date"`
	Amount          int64      `db:"amount" json:"amount"`
	USDAmount       int64      `db:"usd_amount" json:"usd_amount"`
}

// HistoryFilter bounds oper_date inclusively on both ends. Nil means open.
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

func (f HistoryFilter) Contains(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}
