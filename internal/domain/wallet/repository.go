package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	Get(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByName(ctx context.Context, name string) (*Wallet, error)
	List(ctx context.Context) ([]*Wallet, error)
}

const walletColumns = `id, name, city, country, currency_id, balance, created`

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, w *Wallet) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Created.IsZero() {
		w.Created = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, name, city, country, currency_id, balance, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, w.ID, w.Name, w.City, w.Country, w.CurrencyID, w.Balance, w.Created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateName
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := sqlx.GetContext(ctx, r.db, &w, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Wallet, error) {
	var w Wallet
	err := sqlx.GetContext(ctx, r.db, &w, `SELECT `+walletColumns+` FROM wallets WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet by name: %w", err)
	}
	return &w, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Wallet, error) {
	var out []*Wallet
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+walletColumns+` FROM wallets ORDER BY created, name`); err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return out, nil
}

// LockForUpdate row-locks the given wallets in ascending id order and
// returns them keyed by id. Locks are held until the enclosing transaction
// ends, so r must be bound to a *sqlx.Tx.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*Wallet, error) {
	keys := SortedIDs(ids)
	args := make([]string, len(keys))
	for i, id := range keys {
		args[i] = id.String()
	}

	var rows []*Wallet
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`, pq.Array(args))
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}

	out := make(map[uuid.UUID]*Wallet, len(rows))
	for _, w := range rows {
		out[w.ID] = w
	}
	for _, id := range keys {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
	}
	return out, nil
}

// AdjustBalance applies delta only if the resulting balance stays
// non-negative.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
	`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("adjust balance existence check: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return ErrInsufficientFunds
}

// SortedIDs returns the distinct ids in ascending byte order, the order in
// which wallet locks are always taken.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
