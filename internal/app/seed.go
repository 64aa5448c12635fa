package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/storage/memory"
)

// Same rows as migration 000002_seed_currencies so both storage drivers
// start from an identical registry.
var (
	USD = uuid.MustParse("5d1c7c9e-3f0a-4b62-9a57-0c7b1d2e0001")
	EUR = uuid.MustParse("5d1c7c9e-3f0a-4b62-9a57-0c7b1d2e0002")
	RUB = uuid.MustParse("5d1c7c9e-3f0a-4b62-9a57-0c7b1d2e0003")

	usdBaseRate = uuid.MustParse("7a4e0f12-61c3-4d8e-b0a9-2f5c3e4d0001")
)

func seed(ctx context.Context, store *memory.Store) error {
	currencies := []*currency.Currency{
		{ID: USD, Code: "USD", Name: "US Dollar", Fractional: 100},
		{ID: EUR, Code: "EUR", Name: "Euro", Fractional: 100},
		{ID: RUB, Code: "RUB", Name: "Russian Ruble", Fractional: 100},
	}
	for _, c := range currencies {
		if err := store.Currencies().Create(ctx, c); err != nil {
			return err
		}
	}

	return store.Rates().Create(ctx, &exchangerate.Rate{
		ID:         usdBaseRate,
		CurrencyID: USD,
		Rate:       decimal.NewFromInt(1),
		Created:    time.Unix(0, 0).UTC(),
	})
}
