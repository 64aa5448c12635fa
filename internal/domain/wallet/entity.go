package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Wallet balance is held in minor units of the wallet's currency and never
// drops below zero.
type Wallet struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	City       string    `db:"city" json:"city"`
	Country    string    `db:"country" json:"country"`
	CurrencyID uuid.UUID `db:"currency_id" json:"currency_id"`
	Balance    int64     `db:"balance" json:"balance"`
	Created    time.Time `db:"created" json:"created"`
}
