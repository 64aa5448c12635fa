package currency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, c *Currency) error
	Get(ctx context.Context, id uuid.UUID) (*Currency, error)
	GetByCode(ctx context.Context, code string) (*Currency, error)
	List(ctx context.Context) ([]*Currency, error)
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = strings.ToUpper(c.Code)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO currencies (id, code, name, fractional)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Code, c.Name, c.Fractional)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert currency: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Currency, error) {
	var c Currency
	err := sqlx.GetContext(ctx, r.db, &c, `SELECT id, code, name, fractional FROM currencies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCurrencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get currency: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Currency, error) {
	var c Currency
	err := sqlx.GetContext(ctx, r.db, &c, `SELECT id, code, name, fractional FROM currencies WHERE code = $1`, strings.ToUpper(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCurrencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get currency by code: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Currency, error) {
	var out []*Currency
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT id, code, name, fractional FROM currencies ORDER BY code`); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return out, nil
}
