package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindRefill   Kind = "REFILL"
	KindTransfer Kind = "TRANSFER"
)

func (k Kind) Valid() bool {
	return k == KindRefill || k == KindTransfer
}

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusDone            Status = "DONE"
	StatusFailedPermanent Status = "FAILED_PERMANENT"
)

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailedPermanent
}

// CurrencyUse selects which party's currency a transfer is denominated in.
type CurrencyUse string

const (
	CurrencyUseFrom CurrencyUse = "FROM"
	CurrencyUseTo   CurrencyUse = "TO"
)

func ParseCurrencyUse(s string) (CurrencyUse, bool) {
	switch CurrencyUse(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyUseFrom:
		return CurrencyUseFrom, true
	case CurrencyUseTo:
		return CurrencyUseTo, true
	}
	return "", false
}

// Transaction is a queued money movement. Amount is in major units of
// CurrencyID. Only the settlement processor changes Status.
type Transaction struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Seq           int64           `db:"seq" json:"-"`
	Kind          Kind            `db:"kind" json:"kind"`
	WalletFromID  *uuid.UUID      `db:"wallet_from_id" json:"wallet_from_id,omitempty"`
	WalletToID    uuid.UUID       `db:"wallet_to_id" json:"wallet_to_id"`
	CurrencyID    uuid.UUID       `db:"currency_id" json:"currency_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        Status          `db:"status" json:"status"`
	Attempts      int             `db:"attempts" json:"attempts"`
	LastError     *string         `db:"last_error" json:"last_error,omitempty"`
	FailureReason *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	OperationID   *uuid.UUID      `db:"operation_id" json:"operation_id,omitempty"`
	Created       time.Time       `db:"created" json:"created"`
	SettledAt     *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
