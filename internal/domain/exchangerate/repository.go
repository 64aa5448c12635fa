package exchangerate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, rate *Rate) error
	RateAtOrBefore(ctx context.Context, currencyID uuid.UUID, asOf time.Time) (*Rate, error)
	List(ctx context.Context, currencyID uuid.UUID, limit int) ([]*Rate, error)
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rate *Rate) error {
	if !rate.Rate.IsPositive() {
		return ErrInvalidRate
	}
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}

	err := sqlx.GetContext(ctx, r.db, &rate.Seq, `
		INSERT INTO exchange_rates (id, currency_id, rate, created)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, rate.ID, rate.CurrencyID, rate.Rate, rate.Created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRate
		}
		return fmt.Errorf("insert exchange rate: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RateAtOrBefore(ctx context.Context, currencyID uuid.UUID, asOf time.Time) (*Rate, error) {
	var rate Rate
	err := sqlx.GetContext(ctx, r.db, &rate, `
		SELECT id, seq, currency_id, rate, created
		FROM exchange_rates
		WHERE currency_id = $1 AND created <= $2
		ORDER BY created DESC, seq DESC
		LIMIT 1
	`, currencyID, asOf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rate lookup: %w", err)
	}
	return &rate, nil
}

func (r *PostgresRepository) List(ctx context.Context, currencyID uuid.UUID, limit int) ([]*Rate, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*Rate
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT id, seq, currency_id, rate, created
		FROM exchange_rates
		WHERE currency_id = $1
		ORDER BY created DESC, seq DESC
		LIMIT $2
	`, currencyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	return out, nil
}
