package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/events"
)

const (
	defaultBatchSize     = 500
	defaultLookupTimeout = 3 * time.Second
	publishTimeout       = 5 * time.Second
)

type Config struct {
	// BatchSize caps how many pending transactions one cycle considers.
	BatchSize int
	// MaxAttempts converts a transient failure into FAILED_PERMANENT once a
	// transaction has been attempted this many times. 0 disables the cap.
	MaxAttempts int
	// MaxPendingAge does the same once a transaction has waited this long
	// since creation. 0 disables the cap.
	MaxPendingAge time.Duration
	// LookupTimeout bounds each rate and currency read.
	LookupTimeout time.Duration
}

type Outcome string

const (
	OutcomeSettled Outcome = "settled"
	OutcomeRetry   Outcome = "retry"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// CycleResult counts what one poll cycle did. Settled is the number of
// transactions moved to DONE.
type CycleResult struct {
	Settled int `json:"settled"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (r CycleResult) Total() int {
	return r.Settled + r.Retried + r.Failed + r.Skipped
}

func (r *CycleResult) add(o Outcome) {
	switch o {
	case OutcomeSettled:
		r.Settled++
	case OutcomeRetry:
		r.Retried++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

type Processor struct {
	uow        UnitOfWork
	currencies CurrencyRegistry
	publisher  events.Publisher
	cfg        Config
	now        func() time.Time
}

func NewProcessor(uow UnitOfWork, currencies CurrencyRegistry, publisher events.Publisher, cfg Config) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Processor{
		uow:        uow,
		currencies: currencies,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for settled_at and the age budget.
// Rate lookups never read it; they are anchored to each transaction's
// creation time.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// RunCycle settles pending transactions oldest first, each in its own unit
// of work. A failing transaction never stops the batch; only a failure to
// list the queue or cancellation of ctx ends the cycle early.
func (p *Processor) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	var ids []uuid.UUID
	err := p.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		var err error
		ids, err = s.Transactions.PendingIDs(ctx, p.cfg.BatchSize)
		return err
	})
	if err != nil {
		return res, storageErr("list pending", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.add(p.settleOne(ctx, id))
	}
	return res, nil
}

// settled carries what is published once the unit of work commits.
type settled struct {
	tx *transaction.Transaction
	op *ledger.Operation
}

func (p *Processor) settleOne(ctx context.Context, id uuid.UUID) Outcome {
	start := time.Now()
	logger := log.With().Str("tx_id", id.String()).Logger()

	var claimed bool
	var done *settled
	err := p.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		tx, ok, err := s.Transactions.ClaimPending(ctx, id)
		if err != nil {
			return storageErr("claim", err)
		}
		if !ok {
			return nil
		}
		claimed = true

		op, err := p.apply(ctx, s, tx)
		if err != nil {
			return err
		}
		done = &settled{tx: tx, op: op}
		return nil
	})

	if err == nil {
		if !claimed {
			logger.Debug().Msg("transaction claimed elsewhere or no longer pending")
			return OutcomeSkipped
		}
		logger.Info().
			Str("kind", string(done.tx.Kind)).
			Str("operation_id", done.op.ID.String()).
			Int64("oper_amount", done.op.OperAmount).
			Int64("usd_amount", done.op.USDAmount).
			Dur("took", time.Since(start)).
			Msg("transaction settled")
		p.publishSettled(ctx, done)
		return OutcomeSettled
	}

	if ctx.Err() != nil {
		logger.Warn().Err(err).Msg("settlement interrupted, transaction stays pending")
		return OutcomeRetry
	}
	return p.recordFailure(ctx, id, err)
}

// apply executes the settlement of one claimed transaction. Every read and
// conversion happens before the first write; any returned error rolls the
// unit of work back.
func (p *Processor) apply(ctx context.Context, s Stores, tx *transaction.Transaction) (*ledger.Operation, error) {
	if err := checkShape(tx); err != nil {
		return nil, err
	}

	txCurrency, err := p.currency(ctx, tx.CurrencyID)
	if err != nil {
		return nil, err
	}
	rate, err := p.rateAt(ctx, s.Rates, tx.CurrencyID, tx.Created)
	if err != nil {
		return nil, err
	}

	usdCents, err := USDCents(tx.Amount, rate.Rate)
	if err != nil {
		return nil, err
	}
	txMinor, err := MinorUnits(tx.Amount, txCurrency.Fractional)
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{tx.WalletToID}
	if tx.Kind == transaction.KindTransfer {
		ids = append(ids, *tx.WalletFromID)
	}
	wallets, err := s.Wallets.LockForUpdate(ctx, ids...)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return nil, integrityErr("%v", err)
		}
		return nil, storageErr("lock wallets", err)
	}

	legAmount := func(w *wallet.Wallet) (int64, error) {
		if w.CurrencyID == tx.CurrencyID {
			return txMinor, nil
		}
		walletCurrency, err := p.currency(ctx, w.CurrencyID)
		if err != nil {
			return 0, err
		}
		walletRate, err := p.rateAt(ctx, s.Rates, w.CurrencyID, tx.Created)
		if err != nil {
			return 0, err
		}
		return LegFromUSD(usdCents, walletRate.Rate, walletCurrency.Fractional)
	}

	to := wallets[tx.WalletToID]
	credit, err := legAmount(to)
	if err != nil {
		return nil, err
	}

	var from *wallet.Wallet
	var debit int64
	if tx.Kind == transaction.KindTransfer {
		from = wallets[*tx.WalletFromID]
		if debit, err = legAmount(from); err != nil {
			return nil, err
		}
	}

	op := &ledger.Operation{
		ID:         uuid.New(),
		CurrencyID: tx.CurrencyID,
		Kind:       string(tx.Kind),
		OperAmount: txMinor,
		USDAmount:  usdCents,
		Created:    tx.Created,
	}
	if err := s.Ledger.RecordOperation(ctx, op); err != nil {
		return nil, storageErr("record operation", err)
	}

	if from != nil {
		if err := adjust(ctx, s.Wallets, from.ID, -debit); err != nil {
			return nil, err
		}
		if err := s.Ledger.RecordHistory(ctx, &ledger.History{
			ID:              uuid.New(),
			WalletID:        from.ID,
			OperationID:     op.ID,
			PartnerWalletID: ptr(to.ID),
			PartnerName:     ptr(to.Name),
			Direction:       ledger.DirectionOut,
			Amount:          debit,
			OperDate:        tx.Created,
		}); err != nil {
			return nil, storageErr("record debit history", err)
		}
	}

	if err := adjust(ctx, s.Wallets, to.ID, credit); err != nil {
		return nil, err
	}
	in := &ledger.History{
		ID:          uuid.New(),
		WalletID:    to.ID,
		OperationID: op.ID,
		Direction:   ledger.DirectionIn,
		Amount:      credit,
		OperDate:    tx.Created,
	}
	if from != nil {
		in.PartnerWalletID = ptr(from.ID)
		in.PartnerName = ptr(from.Name)
	}
	if err := s.Ledger.RecordHistory(ctx, in); err != nil {
		return nil, storageErr("record credit history", err)
	}

	if err := s.Transactions.MarkDone(ctx, tx.ID, op.ID, p.now().UTC()); err != nil {
		return nil, storageErr("mark done", err)
	}
	return op, nil
}

func checkShape(tx *transaction.Transaction) error {
	if !tx.Kind.Valid() {
		return integrityErr("unknown kind %q", tx.Kind)
	}
	if !tx.Amount.IsPositive() {
		return integrityErr("non-positive amount %s", tx.Amount)
	}
	switch tx.Kind {
	case transaction.KindTransfer:
		if tx.WalletFromID == nil {
			return integrityErr("transfer without source wallet")
		}
		if *tx.WalletFromID == tx.WalletToID {
			return integrityErr("transfer to the source wallet")
		}
	case transaction.KindRefill:
		if tx.WalletFromID != nil {
			return integrityErr("refill with a source wallet")
		}
	}
	return nil
}

func adjust(ctx context.Context, wallets WalletStore, id uuid.UUID, delta int64) error {
	err := wallets.AdjustBalance(ctx, id, delta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return err
	case errors.Is(err, wallet.ErrWalletNotFound):
		return integrityErr("%v", err)
	default:
		return storageErr("adjust balance", err)
	}
}

func (p *Processor) currency(ctx context.Context, id uuid.UUID) (*currency.Currency, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	c, err := p.currencies.Get(lookupCtx, id)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, currency.ErrCurrencyNotFound):
		return nil, integrityErr("currency %s not found", id)
	default:
		return nil, storageErr("currency lookup", err)
	}
}

// rateAt resolves the as-of quote. A missing quote and a timed-out lookup
// are both RateUnavailable.
func (p *Processor) rateAt(ctx context.Context, rates RateStore, currencyID uuid.UUID, asOf time.Time) (*exchangerate.Rate, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	rate, err := rates.RateAtOrBefore(lookupCtx, currencyID, asOf)
	switch {
	case err == nil:
		return rate, nil
	case errors.Is(err, exchangerate.ErrRateNotFound):
		return nil, fmt.Errorf("%w: currency %s has no rate at or before %s", ErrRateUnavailable, currencyID, asOf.Format(time.RFC3339Nano))
	case ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || lookupCtx.Err() != nil):
		return nil, fmt.Errorf("%w: lookup for currency %s timed out after %s", ErrRateUnavailable, currencyID, p.cfg.LookupTimeout)
	default:
		return nil, storageErr("rate lookup", err)
	}
}

// recordFailure runs in a fresh unit of work after the settlement rolled
// back. Transient failures stay PENDING with the attempt recorded until the
// retry budget runs out.
func (p *Processor) recordFailure(ctx context.Context, id uuid.UUID, cause error) Outcome {
	logger := log.With().Str("tx_id", id.String()).Logger()

	outcome := OutcomeRetry
	var failed *transaction.Transaction
	var reason string

	err := p.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		tx, ok, err := s.Transactions.ClaimPending(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			outcome = OutcomeSkipped
			return nil
		}

		now := p.now().UTC()
		switch {
		case !IsRetryable(cause):
			reason = cause.Error()
		case p.budgetExhausted(tx, now):
			reason = "retry budget exhausted: " + cause.Error()
		default:
			outcome = OutcomeRetry
			tx.Attempts++
			failed = tx
			return s.Transactions.RecordAttempt(ctx, id, cause.Error(), now)
		}

		outcome = OutcomeFailed
		tx.Attempts++
		tx.Status = transaction.StatusFailedPermanent
		failed = tx
		return s.Transactions.MarkFailed(ctx, id, reason, now)
	})
	if err != nil {
		logger.Error().Err(err).AnErr("cause", cause).Msg("failed to record settlement failure")
		return OutcomeRetry
	}

	switch outcome {
	case OutcomeFailed:
		logger.Error().
			Err(cause).
			Str("kind", string(failed.Kind)).
			Int("attempts", failed.Attempts).
			Str("reason", reason).
			Msg("transaction failed permanently")
		p.publishFailed(ctx, failed, reason)
	case OutcomeRetry:
		logger.Warn().
			Err(cause).
			Str("kind", string(failed.Kind)).
			Int("attempts", failed.Attempts).
			Msg("transaction left pending for retry")
	case OutcomeSkipped:
		logger.Debug().Err(cause).Msg("transaction left pending by another worker")
	}
	return outcome
}

func (p *Processor) budgetExhausted(tx *transaction.Transaction, now time.Time) bool {
	if p.cfg.MaxAttempts > 0 && tx.Attempts+1 >= p.cfg.MaxAttempts {
		return true
	}
	if p.cfg.MaxPendingAge > 0 && now.Sub(tx.Created) >= p.cfg.MaxPendingAge {
		return true
	}
	return false
}

func (p *Processor) publishSettled(ctx context.Context, s *settled) {
	opID := s.op.ID
	usd := s.op.USDAmount
	p.publish(ctx, events.Event{
		Type:          events.TypeTransactionSettled,
		TransactionID: s.tx.ID,
		Kind:          string(s.tx.Kind),
		Status:        string(transaction.StatusDone),
		OperationID:   &opID,
		USDAmount:     &usd,
		OccurredAt:    p.now().UTC(),
	})
}

func (p *Processor) publishFailed(ctx context.Context, tx *transaction.Transaction, reason string) {
	p.publish(ctx, events.Event{
		Type:          events.TypeTransactionFailed,
		TransactionID: tx.ID,
		Kind:          string(tx.Kind),
		Status:        string(transaction.StatusFailedPermanent),
		Reason:        reason,
		OccurredAt:    p.now().UTC(),
	})
}

// publish is best-effort: the ledger is already committed.
func (p *Processor) publish(ctx context.Context, ev events.Event) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.publisher.Publish(pubCtx, ev); err != nil {
		log.Warn().Err(err).Str("tx_id", ev.TransactionID.String()).Str("type", ev.Type).Msg("failed to publish settlement event")
	}
}

func ptr[T any](v T) *T {
	return &v
}
