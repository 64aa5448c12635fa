package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/events"
	"github.com/paysys/wallet-ledger/internal/storage/memory"
)

var (
	day0   = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txTime = day0.Add(12 * time.Hour)

	decimalOne = decimal.NewFromInt(1)
)

type fixture struct {
	t     *testing.T
	store *memory.Store
	reg   *currency.Registry
	pub   *recordingPublisher

	usd *currency.Currency
	eur *currency.Currency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		t:     t,
		store: store,
		reg:   currency.NewRegistry(store.Currencies(), currency.NewLocalCache()),
		pub:   &recordingPublisher{},
	}
	f.usd = f.addCurrency("USD", 100)
	f.eur = f.addCurrency("EUR", 100)
	f.addRate(f.usd, "1", day0)
	return f
}

// processor builds a processor over uow, or over the fixture's store when
// uow is nil.
func (f *fixture) processor(uow settlement.UnitOfWork, cfg settlement.Config) *settlement.Processor {
	if uow == nil {
		uow = f.store
	}
	return settlement.NewProcessor(uow, f.reg, f.pub, cfg)
}

func (f *fixture) addCurrency(code string, fractional int64) *currency.Currency {
	f.t.Helper()
	c := &currency.Currency{Code: code, Name: code, Fractional: fractional}
	if err := f.store.Currencies().Create(context.Background(), c); err != nil {
		f.t.Fatalf("create currency %s: %v", code, err)
	}
	return c
}

func (f *fixture) addRate(c *currency.Currency, rate string, at time.Time) {
	f.t.Helper()
	r := &exchangerate.Rate{CurrencyID: c.ID, Rate: decimal.RequireFromString(rate), Created: at}
	if err := f.store.Rates().Create(context.Background(), r); err != nil {
		f.t.Fatalf("create rate: %v", err)
	}
}

func (f *fixture) addWallet(name string, c *currency.Currency, balance int64) *wallet.Wallet {
	f.t.Helper()
	w := &wallet.Wallet{Name: name, CurrencyID: c.ID, Balance: balance}
	if err := f.store.Wallets().Create(context.Background(), w); err != nil {
		f.t.Fatalf("create wallet %s: %v", name, err)
	}
	return w
}

func (f *fixture) refill(to *wallet.Wallet, c *currency.Currency, amount string) *transaction.Transaction {
	f.t.Helper()
	return f.enqueue(&transaction.Transaction{
		Kind:       transaction.KindRefill,
		WalletToID: to.ID,
		CurrencyID: c.ID,
		Amount:     decimal.RequireFromString(amount),
		Created:    txTime,
	})
}

func (f *fixture) transfer(from, to *wallet.Wallet, c *currency.Currency, amount string) *transaction.Transaction {
	f.t.Helper()
	fromID := from.ID
	return f.enqueue(&transaction.Transaction{
		Kind:         transaction.KindTransfer,
		WalletFromID: &fromID,
		WalletToID:   to.ID,
		CurrencyID:   c.ID,
		Amount:       decimal.RequireFromString(amount),
		Created:      txTime,
	})
}

func (f *fixture) enqueue(tx *transaction.Transaction) *transaction.Transaction {
	f.t.Helper()
	if err := f.store.Transactions().Enqueue(context.Background(), tx); err != nil {
		f.t.Fatalf("enqueue: %v", err)
	}
	return tx
}

func (f *fixture) tx(id uuid.UUID) *transaction.Transaction {
	f.t.Helper()
	tx, err := f.store.Transactions().Get(context.Background(), id)
	if err != nil {
		f.t.Fatalf("get transaction: %v", err)
	}
	return tx
}

func (f *fixture) balance(w *wallet.Wallet) int64 {
	f.t.Helper()
	got, err := f.store.Wallets().Get(context.Background(), w.ID)
	if err != nil {
		f.t.Fatalf("get wallet: %v", err)
	}
	return got.Balance
}

func (f *fixture) history(w *wallet.Wallet) []ledger.Entry {
	f.t.Helper()
	entries, err := f.store.Ledger().ListHistory(context.Background(), w.ID, ledger.HistoryFilter{})
	if err != nil {
		f.t.Fatalf("list history: %v", err)
	}
	return entries
}

func (f *fixture) run(p *settlement.Processor) settlement.CycleResult {
	f.t.Helper()
	res, err := p.RunCycle(context.Background())
	if err != nil {
		f.t.Fatalf("run cycle: %v", err)
	}
	return res
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// faultyUoW runs the inner unit of work with some stores swapped out.
type faultyUoW struct {
	inner settlement.UnitOfWork
	wrap  func(s settlement.Stores) settlement.Stores
}

func (u faultyUoW) Do(ctx context.Context, fn func(ctx context.Context, s settlement.Stores) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, s settlement.Stores) error {
		return fn(ctx, u.wrap(s))
	})
}

// blockingRates never answers until the lookup context ends. started, if
// set, is closed on the first call.
type blockingRates struct {
	settlement.RateStore
	once    sync.Once
	started chan struct{}
}

func (r *blockingRates) RateAtOrBefore(ctx context.Context, _ uuid.UUID, _ time.Time) (*exchangerate.Rate, error) {
	if r.started != nil {
		r.once.Do(func() { close(r.started) })
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

var errConnReset = errors.New("connection reset by peer")

type failingLedger struct {
	settlement.LedgerWriter
}

func (failingLedger) RecordOperation(context.Context, *ledger.Operation) error {
	return errConnReset
}

// failingHistory lets the operation through and fails the first history row,
// after the source wallet has already been debited.
type failingHistory struct {
	settlement.LedgerWriter
}

func (failingHistory) RecordHistory(context.Context, *ledger.History) error {
	return errConnReset
}
