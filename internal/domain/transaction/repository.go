package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Enqueue(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
}

const columns = `id, seq, kind, wallet_from_id, wallet_to_id, currency_id, amount, status,
	attempts, last_error, failure_reason, operation_id, created, settled_at, updated_at`

// maxErrorLen caps stored error text.
const maxErrorLen = 2000

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, tx *Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Status = StatusPending
	if tx.Created.IsZero() {
		tx.Created = time.Now().UTC()
	}
	tx.UpdatedAt = tx.Created

	err := sqlx.GetContext(ctx, r.db, &tx.Seq, `
		INSERT INTO transactions (id, kind, wallet_from_id, wallet_to_id, currency_id, amount, status, created, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`, tx.ID, tx.Kind, tx.WalletFromID, tx.WalletToID, tx.CurrencyID, tx.Amount, tx.Status, tx.Created, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := sqlx.GetContext(ctx, r.db, &tx, `SELECT `+columns+` FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

// PendingIDs returns up to limit pending transaction ids, oldest first.
func (r *PostgresRepository) PendingIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, r.db, &ids, `
		SELECT id
		FROM transactions
		WHERE status = 'PENDING'
		ORDER BY created ASC, seq ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	return ids, nil
}

// ClaimPending row-locks a still-pending transaction for the rest of the
// enclosing database transaction. It reports false when another worker
// holds the row or the transaction already left PENDING.
func (r *PostgresRepository) ClaimPending(ctx context.Context, id uuid.UUID) (*Transaction, bool, error) {
	var tx Transaction
	err := sqlx.GetContext(ctx, r.db, &tx, `
		SELECT `+columns+`
		FROM transactions
		WHERE id = $1 AND status = 'PENDING'
		FOR UPDATE SKIP LOCKED
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("claim transaction: %w", err)
	}
	return &tx, true, nil
}

func (r *PostgresRepository) MarkDone(ctx context.Context, id, operationID uuid.UUID, at time.Time) error {
	return r.transition(ctx, `
		UPDATE transactions
		SET status = 'DONE', operation_id = $2, settled_at = $3, updated_at = $3, last_error = NULL
		WHERE id = $1 AND status = 'PENDING'
	`, id, operationID, at)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.transition(ctx, `
		UPDATE transactions
		SET status = 'FAILED_PERMANENT', failure_reason = $2, updated_at = $3, attempts = attempts + 1
		WHERE id = $1 AND status = 'PENDING'
	`, id, truncate(reason), at)
}

func (r *PostgresRepository) RecordAttempt(ctx context.Context, id uuid.UUID, lastErr string, at time.Time) error {
	return r.transition(ctx, `
		UPDATE transactions
		SET attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`, id, truncate(lastErr), at)
}

func (r *PostgresRepository) transition(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func truncate(s string) string {
	if len(s) > maxErrorLen {
		return s[:maxErrorLen]
	}
	return s
}
