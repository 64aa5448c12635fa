package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

type TransactionQueue interface {
	PendingIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	ClaimPending(ctx context.Context, id uuid.UUID) (*transaction.Transaction, bool, error)
	MarkDone(ctx context.Context, id, operationID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	RecordAttempt(ctx context.Context, id uuid.UUID, lastErr string, at time.Time) error
}

type WalletStore interface {
	LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*wallet.Wallet, error)
	AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) error
}

type RateStore interface {
	RateAtOrBefore(ctx context.Context, currencyID uuid.UUID, asOf time.Time) (*exchangerate.Rate, error)
}

type LedgerWriter interface {
	RecordOperation(ctx context.Context, op *ledger.Operation) error
	RecordHistory(ctx context.Context, h *ledger.History) error
}

type CurrencyRegistry interface {
	Get(ctx context.Context, id uuid.UUID) (*currency.Currency, error)
}

// Stores are bound to a single unit of work.
type Stores struct {
	Transactions TransactionQueue
	Wallets      WalletStore
	Rates        RateStore
	Ledger       LedgerWriter
}

// UnitOfWork runs fn atomically: every write made through the Stores is
// committed when fn returns nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
