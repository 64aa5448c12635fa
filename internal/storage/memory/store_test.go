package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

func seedStore(t *testing.T) (*Store, *currency.Currency, *wallet.Wallet) {
	t.Helper()
	ctx := context.Background()
	s := New()
	usd := &currency.Currency{Code: "usd", Name: "US Dollar", Fractional: 100}
	if err := s.Currencies().Create(ctx, usd); err != nil {
		t.Fatalf("create currency: %v", err)
	}
	w := &wallet.Wallet{Name: "alice", CurrencyID: usd.ID, Balance: 500}
	if err := s.Wallets().Create(ctx, w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return s, usd, w
}

func TestDoRollsBackOnError(t *testing.T) {
	s, _, w := seedStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Do(ctx, func(ctx context.Context, st settlement.Stores) error {
		if err := st.Wallets.AdjustBalance(ctx, w.ID, 250); err != nil {
			return err
		}
		if err := st.Ledger.RecordOperation(ctx, &ledger.Operation{Kind: "REFILL"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Wallets().Get(ctx, w.ID)
	if got.Balance != 500 {
		t.Fatalf("expected balance rolled back to 500, got %d", got.Balance)
	}
	if len(s.Ledger().Operations()) != 0 {
		t.Fatalf("expected operation to be discarded")
	}
}

func TestDoCommitsOnSuccess(t *testing.T) {
	s, _, w := seedStore(t)
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, st settlement.Stores) error {
		return st.Wallets.AdjustBalance(ctx, w.ID, -500)
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	got, _ := s.Wallets().Get(ctx, w.ID)
	if got.Balance != 0 {
		t.Fatalf("expected balance 0, got %d", got.Balance)
	}
}

func TestAdjustBalanceNeverGoesNegative(t *testing.T) {
	s, _, w := seedStore(t)
	if err := s.Wallets().AdjustBalance(context.Background(), w.ID, -501); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestRateAtOrBefore(t *testing.T) {
	s, usd, _ := seedStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []struct {
		rate string
		at   time.Time
	}{
		{"1.0", t0},
		{"1.1", t0.Add(time.Hour)},
		{"1.2", t0.Add(2 * time.Hour)},
	} {
		if err := s.Rates().Create(ctx, &exchangerate.Rate{CurrencyID: usd.ID, Rate: decimal.RequireFromString(r.rate), Created: r.at}); err != nil {
			t.Fatalf("create rate: %v", err)
		}
	}

	got, err := s.Rates().RateAtOrBefore(ctx, usd.ID, t0.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("rate lookup: %v", err)
	}
	if !got.Rate.Equal(decimal.RequireFromString("1.1")) {
		t.Fatalf("expected 1.1, got %s", got.Rate)
	}

	got, err = s.Rates().RateAtOrBefore(ctx, usd.ID, t0.Add(2*time.Hour))
	if err != nil || !got.Rate.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("a quote at exactly the as-of time applies, got %v %v", got, err)
	}

	if _, err := s.Rates().RateAtOrBefore(ctx, usd.ID, t0.Add(-time.Second)); !errors.Is(err, exchangerate.ErrRateNotFound) {
		t.Fatalf("expected not found before first quote, got %v", err)
	}

	dup := &exchangerate.Rate{CurrencyID: usd.ID, Rate: decimal.RequireFromString("9"), Created: t0}
	if err := s.Rates().Create(ctx, dup); !errors.Is(err, exchangerate.ErrDuplicateRate) {
		t.Fatalf("expected duplicate rate error, got %v", err)
	}
}

func TestPendingIDsOldestFirst(t *testing.T) {
	s, usd, w := seedStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := &transaction.Transaction{Kind: transaction.KindRefill, WalletToID: w.ID, CurrencyID: usd.ID, Amount: decimal.NewFromInt(1), Created: t0.Add(time.Minute)}
	older := &transaction.Transaction{Kind: transaction.KindRefill, WalletToID: w.ID, CurrencyID: usd.ID, Amount: decimal.NewFromInt(1), Created: t0}
	tie := &transaction.Transaction{Kind: transaction.KindRefill, WalletToID: w.ID, CurrencyID: usd.ID, Amount: decimal.NewFromInt(1), Created: t0}
	for _, tx := range []*transaction.Transaction{newer, older, tie} {
		if err := s.Transactions().Enqueue(ctx, tx); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ids, err := s.Transactions().PendingIDs(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ids) != 3 || ids[0] != older.ID || ids[1] != tie.ID || ids[2] != newer.ID {
		t.Fatalf("unexpected order %v", ids)
	}

	if ids, _ := s.Transactions().PendingIDs(ctx, 2); len(ids) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(ids))
	}
}

func TestTransitionsRequirePending(t *testing.T) {
	s, usd, w := seedStore(t)
	ctx := context.Background()

	tx := &transaction.Transaction{Kind: transaction.KindRefill, WalletToID: w.ID, CurrencyID: usd.ID, Amount: decimal.NewFromInt(1)}
	if err := s.Transactions().Enqueue(ctx, tx); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.Transactions().MarkFailed(ctx, tx.ID, "bad", time.Now()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := s.Transactions().RecordAttempt(ctx, tx.ID, "late", time.Now()); !errors.Is(err, transaction.ErrTransactionNotFound) {
		t.Fatalf("terminal transaction must reject transitions, got %v", err)
	}
	if _, ok, _ := s.Transactions().ClaimPending(ctx, tx.ID); ok {
		t.Fatalf("terminal transaction must not be claimable")
	}
}

func TestCurrencyCodesAreUnique(t *testing.T) {
	s, _, _ := seedStore(t)
	err := s.Currencies().Create(context.Background(), &currency.Currency{Code: "USD", Name: "dup", Fractional: 100})
	if !errors.Is(err, currency.ErrDuplicateCode) {
		t.Fatalf("expected duplicate code, got %v", err)
	}
}

func TestHistoryRequiresOperation(t *testing.T) {
	s, _, w := seedStore(t)
	err := s.Ledger().RecordHistory(context.Background(), &ledger.History{WalletID: w.ID, Direction: ledger.DirectionIn, Amount: 1})
	if !errors.Is(err, ledger.ErrInvalidEntry) {
		t.Fatalf("expected invalid entry, got %v", err)
	}
}
