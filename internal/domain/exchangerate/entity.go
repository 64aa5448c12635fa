package exchangerate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rate is a quote of how many units of a currency buy one USD at Created.
// Seq is the insertion order and breaks ties between equal timestamps.
type Rate struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Seq        int64           `db:"seq" json:"-"`
	CurrencyID uuid.UUID       `db:"currency_id" json:"currency_id"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	Created    time.Time       `db:"created" json:"created"`
}
