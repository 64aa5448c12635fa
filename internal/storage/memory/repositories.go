package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

type Currencies struct{ s *Store }

func (r *Currencies) Create(_ context.Context, c *currency.Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Code = strings.ToUpper(c.Code)

	r.s.curMu.Lock()
	defer r.s.curMu.Unlock()
	for _, existing := range r.s.currencies {
		if existing.Code == c.Code {
			return currency.ErrDuplicateCode
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.currencies[c.ID] = *c
	return nil
}

func (r *Currencies) Get(ctx context.Context, id uuid.UUID) (*currency.Currency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.curMu.RLock()
	defer r.s.curMu.RUnlock()
	c, ok := r.s.currencies[id]
	if !ok {
		return nil, currency.ErrCurrencyNotFound
	}
	return &c, nil
}

func (r *Currencies) GetByCode(_ context.Context, code string) (*currency.Currency, error) {
	code = strings.ToUpper(code)
	r.s.curMu.RLock()
	defer r.s.curMu.RUnlock()
	for _, c := range r.s.currencies {
		if c.Code == code {
			c := c
			return &c, nil
		}
	}
	return nil, currency.ErrCurrencyNotFound
}

func (r *Currencies) List(context.Context) ([]*currency.Currency, error) {
	r.s.curMu.RLock()
	out := make([]*currency.Currency, 0, len(r.s.currencies))
	for _, c := range r.s.currencies {
		c := c
		out = append(out, &c)
	}
	r.s.curMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type Rates struct{ v view }

func (r *Rates) Create(_ context.Context, rate *exchangerate.Rate) error {
	if !rate.Rate.IsPositive() {
		return exchangerate.ErrInvalidRate
	}
	return r.v.run(func(st *state) error {
		if !r.v.store.currencyExists(rate.CurrencyID) {
			return currency.ErrCurrencyNotFound
		}
		for _, existing := range st.rates {
			if existing.CurrencyID == rate.CurrencyID && existing.Created.Equal(rate.Created) {
				return exchangerate.ErrDuplicateRate
			}
		}
		if rate.ID == uuid.Nil {
			rate.ID = uuid.New()
		}
		rate.Seq = st.nextSeq()
		st.rates = append(st.rates, *rate)
		return nil
	})
}

func (r *Rates) RateAtOrBefore(ctx context.Context, currencyID uuid.UUID, asOf time.Time) (*exchangerate.Rate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var best *exchangerate.Rate
	_ = r.v.run(func(st *state) error {
		for i := range st.rates {
			rate := st.rates[i]
			if rate.CurrencyID != currencyID || rate.Created.After(asOf) {
				continue
			}
			if best == nil || rate.Created.After(best.Created) ||
				(rate.Created.Equal(best.Created) && rate.Seq > best.Seq) {
				best = &rate
			}
		}
		return nil
	})
	if best == nil {
		return nil, exchangerate.ErrRateNotFound
	}
	return best, nil
}

func (r *Rates) List(_ context.Context, currencyID uuid.UUID, limit int) ([]*exchangerate.Rate, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*exchangerate.Rate
	_ = r.v.run(func(st *state) error {
		for _, rate := range st.rates {
			if rate.CurrencyID == currencyID {
				rate := rate
				out = append(out, &rate)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Seq > out[j].Seq
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Wallets struct{ v view }

func (r *Wallets) Create(_ context.Context, w *wallet.Wallet) error {
	return r.v.run(func(st *state) error {
		if !r.v.store.currencyExists(w.CurrencyID) {
			return currency.ErrCurrencyNotFound
		}
		for _, existing := range st.wallets {
			if existing.Name == w.Name {
				return wallet.ErrDuplicateName
			}
		}
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		if w.Created.IsZero() {
			w.Created = time.Now().UTC()
		}
		st.wallets[w.ID] = *w
		return nil
	})
}

func (r *Wallets) Get(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.v.run(func(st *state) error {
		w, ok := st.wallets[id]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *Wallets) GetByName(_ context.Context, name string) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.v.run(func(st *state) error {
		for _, w := range st.wallets {
			if w.Name == name {
				w := w
				out = &w
				return nil
			}
		}
		return wallet.ErrWalletNotFound
	})
	return out, err
}

func (r *Wallets) List(context.Context) ([]*wallet.Wallet, error) {
	var out []*wallet.Wallet
	_ = r.v.run(func(st *state) error {
		for _, w := range st.wallets {
			w := w
			out = append(out, &w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LockForUpdate has nothing to lock beyond the unit of work itself; it
// only resolves the wallets.
func (r *Wallets) LockForUpdate(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*wallet.Wallet, error) {
	out := make(map[uuid.UUID]*wallet.Wallet, len(ids))
	err := r.v.run(func(st *state) error {
		for _, id := range wallet.SortedIDs(ids) {
			w, ok := st.wallets[id]
			if !ok {
				return fmt.Errorf("%w: %s", wallet.ErrWalletNotFound, id)
			}
			out[id] = &w
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Wallets) AdjustBalance(_ context.Context, id uuid.UUID, delta int64) error {
	return r.v.run(func(st *state) error {
		w, ok := st.wallets[id]
		if !ok {
			return fmt.Errorf("%w: %s", wallet.ErrWalletNotFound, id)
		}
		if w.Balance+delta < 0 {
			return wallet.ErrInsufficientFunds
		}
		w.Balance += delta
		st.wallets[id] = w
		return nil
	})
}

type Ledger struct{ v view }

func (r *Ledger) RecordOperation(_ context.Context, op *ledger.Operation) error {
	return r.v.run(func(st *state) error {
		if op.ID == uuid.Nil {
			op.ID = uuid.New()
		}
		st.operations[op.ID] = *op
		return nil
	})
}

func (r *Ledger) RecordHistory(_ context.Context, h *ledger.History) error {
	if h.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ledger.ErrInvalidEntry, h.Amount)
	}
	return r.v.run(func(st *state) error {
		if _, ok := st.operations[h.OperationID]; !ok {
			return fmt.Errorf("%w: unknown operation %s", ledger.ErrInvalidEntry, h.OperationID)
		}
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		st.history = append(st.history, *h)
		return nil
	})
}

func (r *Ledger) ListHistory(_ context.Context, walletID uuid.UUID, filter ledger.HistoryFilter) ([]ledger.Entry, error) {
	var out []ledger.Entry
	_ = r.v.run(func(st *state) error {
		for _, h := range st.history {
			if h.WalletID != walletID || !filter.Contains(h.OperDate) {
				continue
			}
			op := st.operations[h.OperationID]
			out = append(out, ledger.Entry{
				HistoryID:       h.ID,
				OperationID:     h.OperationID,
				Kind:            op.Kind,
				Direction:       h.Direction,
				PartnerWalletID: h.PartnerWalletID,
				PartnerName:     h.PartnerName,
				OperDate:        h.OperDate,
				Amount:          h.Amount,
				USDAmount:       op.USDAmount,
			})
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].OperDate.Before(out[j].OperDate) })
	return out, nil
}

// Operations returns every recorded operation.
func (r *Ledger) Operations() []ledger.Operation {
	var out []ledger.Operation
	_ = r.v.run(func(st *state) error {
		for _, op := range st.operations {
			out = append(out, op)
		}
		return nil
	})
	return out
}

type Transactions struct{ v view }

func (r *Transactions) Enqueue(_ context.Context, tx *transaction.Transaction) error {
	return r.v.run(func(st *state) error {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		tx.Status = transaction.StatusPending
		if tx.Created.IsZero() {
			tx.Created = time.Now().UTC()
		}
		tx.UpdatedAt = tx.Created
		tx.Seq = st.nextSeq()
		st.transactions[tx.ID] = *tx
		return nil
	})
}

func (r *Transactions) Get(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var out *transaction.Transaction
	err := r.v.run(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return transaction.ErrTransactionNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r *Transactions) PendingIDs(_ context.Context, limit int) ([]uuid.UUID, error) {
	var pending []transaction.Transaction
	_ = r.v.run(func(st *state) error {
		for _, tx := range st.transactions {
			if tx.Status == transaction.StatusPending {
				pending = append(pending, tx)
			}
		}
		return nil
	})
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].Created.Equal(pending[j].Created) {
			return pending[i].Created.Before(pending[j].Created)
		}
		return pending[i].Seq < pending[j].Seq
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	ids := make([]uuid.UUID, len(pending))
	for i, tx := range pending {
		ids[i] = tx.ID
	}
	return ids, nil
}

func (r *Transactions) ClaimPending(_ context.Context, id uuid.UUID) (*transaction.Transaction, bool, error) {
	var out *transaction.Transaction
	_ = r.v.run(func(st *state) error {
		if tx, ok := st.transactions[id]; ok && tx.Status == transaction.StatusPending {
			out = &tx
		}
		return nil
	})
	return out, out != nil, nil
}

func (r *Transactions) MarkDone(_ context.Context, id, operationID uuid.UUID, at time.Time) error {
	return r.transition(id, func(tx *transaction.Transaction) {
		tx.Status = transaction.StatusDone
		tx.OperationID = &operationID
		tx.SettledAt = &at
		tx.LastError = nil
		tx.UpdatedAt = at
	})
}

func (r *Transactions) MarkFailed(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.transition(id, func(tx *transaction.Transaction) {
		tx.Status = transaction.StatusFailedPermanent
		tx.FailureReason = &reason
		tx.Attempts++
		tx.UpdatedAt = at
	})
}

func (r *Transactions) RecordAttempt(_ context.Context, id uuid.UUID, lastErr string, at time.Time) error {
	return r.transition(id, func(tx *transaction.Transaction) {
		tx.Attempts++
		tx.LastError = &lastErr
		tx.UpdatedAt = at
	})
}

func (r *Transactions) transition(id uuid.UUID, mutate func(tx *transaction.Transaction)) error {
	return r.v.run(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok || tx.Status != transaction.StatusPending {
			return transaction.ErrTransactionNotFound
		}
		mutate(&tx)
		st.transactions[id] = tx
		return nil
	})
}
