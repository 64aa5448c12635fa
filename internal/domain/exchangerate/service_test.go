package exchangerate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/storage/memory"
)

type countingNotifier struct{ calls int }

func (n *countingNotifier) Notify(context.Context) error {
	n.calls++
	return nil
}

func newService(t *testing.T) (*exchangerate.Service, *countingNotifier) {
	t.Helper()
	store := memory.New()
	if err := store.Currencies().Create(context.Background(), &currency.Currency{Code: "EUR", Name: "Euro", Fractional: 100}); err != nil {
		t.Fatalf("create currency: %v", err)
	}
	n := &countingNotifier{}
	return exchangerate.NewService(store.Rates(), store.Currencies(), n), n
}

func TestCreateAndListNewestFirst(t *testing.T) {
	svc, n := newService(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, r := range []string{"0.90", "0.91", "0.92"} {
		at := t0.Add(time.Duration(i) * time.Hour)
		if _, err := svc.Create(ctx, exchangerate.CreateInput{CurrencyCode: "eur", Rate: decimal.RequireFromString(r), Created: &at}); err != nil {
			t.Fatalf("create rate: %v", err)
		}
	}
	if n.calls != 3 {
		t.Fatalf("expected a wake-up per rate, got %d", n.calls)
	}

	rates, err := svc.List(ctx, "EUR", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rates) != 2 || !rates[0].Rate.Equal(decimal.RequireFromString("0.92")) {
		t.Fatalf("expected newest two rates, got %+v", rates)
	}
}

func TestCreateDefaultsToNow(t *testing.T) {
	svc, _ := newService(t)
	before := time.Now().UTC().Add(-time.Second)

	rate, err := svc.Create(context.Background(), exchangerate.CreateInput{CurrencyCode: "EUR", Rate: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rate.Created.Before(before) {
		t.Fatalf("expected created to default to now, got %s", rate.Created)
	}
}

func TestCreateRejections(t *testing.T) {
	svc, n := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, exchangerate.CreateInput{CurrencyCode: "EUR", Rate: decimal.Zero}); !errors.Is(err, exchangerate.ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	if _, err := svc.Create(ctx, exchangerate.CreateInput{CurrencyCode: "XXX", Rate: decimal.NewFromInt(1)}); !errors.Is(err, currency.ErrCurrencyNotFound) {
		t.Fatalf("expected unknown currency, got %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("rejected rates must not wake workers")
	}
}
