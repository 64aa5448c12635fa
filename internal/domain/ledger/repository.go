package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	RecordOperation(ctx context.Context, op *Operation) error
	RecordHistory(ctx context.Context, h *History) error
	ListHistory(ctx context.Context, walletID uuid.UUID, filter HistoryFilter) ([]Entry, error)
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RecordOperation(ctx context.Context, op *Operation) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operations (id, currency_id, kind, oper_amount, usd_amount, created)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, op.ID, op.CurrencyID, op.Kind, op.OperAmount, op.USDAmount, op.Created)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordHistory(ctx context.Context, h *History) error {
	if h.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidEntry, h.Amount)
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_history (id, wallet_id, operation_id, partner_wallet_id, partner_name, direction, amount, oper_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.WalletID, h.OperationID, h.PartnerWalletID, h.PartnerName, h.Direction, h.Amount, h.OperDate)
	if err != nil {
		return fmt.Errorf("insert wallet history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context, walletID uuid.UUID, filter HistoryFilter) ([]Entry, error) {
	where := []string{"h.wallet_id = $1"}
	args := []interface{}{walletID}
	argPos := 2

	if filter.From != nil {
		where = append(where, fmt.Sprintf("h.oper_date >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("h.oper_date <= $%d", argPos))
		args = append(args, *filter.To)
	}

	query := `
		SELECT h.id AS history_id, h.operation_id, o.kind, h.direction,
		       h.partner_wallet_id, h.partner_name, h.oper_date, h.amount, o.usd_amount
		FROM wallet_history h
		JOIN operations o ON o.id = h.operation_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY h.oper_date ASC, h.seq ASC`

	var out []Entry
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list wallet history: %w", err)
	}
	return out, nil
}
