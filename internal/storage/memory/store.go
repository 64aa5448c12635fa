// Package memory keeps ledger state in process. A unit of work runs against
// a private copy of the state under the store-wide lock and swaps it in only
// on success, which gives the same all-or-nothing behaviour as a database
// transaction for a single process.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

type state struct {
	wallets      map[uuid.UUID]wallet.Wallet
	rates        []exchangerate.Rate
	operations   map[uuid.UUID]ledger.Operation
	history      []ledger.History
	transactions map[uuid.UUID]transaction.Transaction
	seq          int64
}

func newState() *state {
	return &state{
		wallets:      map[uuid.UUID]wallet.Wallet{},
		operations:   map[uuid.UUID]ledger.Operation{},
		transactions: map[uuid.UUID]transaction.Transaction{},
	}
}

// clone copies every container. Records are values; their pointer fields
// are never written through, only replaced.
func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[uuid.UUID]wallet.Wallet, len(s.wallets)),
		rates:        append([]exchangerate.Rate(nil), s.rates...),
		operations:   make(map[uuid.UUID]ledger.Operation, len(s.operations)),
		history:      append([]ledger.History(nil), s.history...),
		transactions: make(map[uuid.UUID]transaction.Transaction, len(s.transactions)),
		seq:          s.seq,
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.operations {
		c.operations[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

// Store keeps currencies apart from the transactional state: they are
// reference data read inside units of work through the currency registry,
// so they sit behind their own lock.
type Store struct {
	mu sync.Mutex
	st *state

	curMu      sync.RWMutex
	currencies map[uuid.UUID]currency.Currency
}

func New() *Store {
	return &Store{st: newState(), currencies: map[uuid.UUID]currency.Currency{}}
}

func (s *Store) currencyExists(id uuid.UUID) bool {
	s.curMu.RLock()
	defer s.curMu.RUnlock()
	_, ok := s.currencies[id]
	return ok
}

// view routes reads and writes either to the committed state (taking the
// lock per call) or, inside Do, to the unit of work's private copy.
type view struct {
	store *Store
	work  *state
}

func (v view) run(fn func(st *state) error) error {
	if v.work != nil {
		return fn(v.work)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (s *Store) Currencies() *Currencies     { return &Currencies{s} }
func (s *Store) Rates() *Rates               { return &Rates{view{store: s}} }
func (s *Store) Wallets() *Wallets           { return &Wallets{view{store: s}} }
func (s *Store) Ledger() *Ledger             { return &Ledger{view{store: s}} }
func (s *Store) Transactions() *Transactions { return &Transactions{view{store: s}} }

// Do implements settlement.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st settlement.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	v := view{store: s, work: work}
	if err := fn(ctx, settlement.Stores{
		Transactions: &Transactions{v},
		Wallets:      &Wallets{v},
		Rates:        &Rates{v},
		Ledger:       &Ledger{v},
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st = work
	return nil
}
