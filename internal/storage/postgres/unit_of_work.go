package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

// UnitOfWork binds the settlement stores to one READ COMMITTED database
// transaction. Row locks taken inside (claimed transaction, wallets) are
// held until commit or rollback.
type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s settlement.Stores) error) error {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", settlement.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, Stores(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %v", settlement.ErrStorageFailure, err)
	}
	return nil
}

// Stores returns the settlement stores bound to q.
func Stores(q sqlx.ExtContext) settlement.Stores {
	return settlement.Stores{
		Transactions: transaction.NewRepository(q),
		Wallets:      wallet.NewRepository(q),
		Rates:        exchangerate.NewRepository(q),
		Ledger:       ledger.NewRepository(q),
	}
}
