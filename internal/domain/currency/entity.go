package currency

import (
	"strings"

	"github.com/google/uuid"
)

// Currency is immutable reference data. Fractional is the minor-unit
// multiplier: 100 means an amount of 1.00 is stored as 100.
type Currency struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	Fractional int64     `db:"fractional" json:"fractional"`
}

func (c *Currency) Validate() error {
	if strings.TrimSpace(c.Code) == "" || c.Fractional <= 0 {
		return ErrInvalidCurrency
	}
	return nil
}
