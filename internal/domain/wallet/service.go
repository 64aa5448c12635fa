package wallet

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
)

type CurrencyLookup interface {
	GetByCode(ctx context.Context, code string) (*currency.Currency, error)
}

type Service struct {
	repo       Repository
	currencies CurrencyLookup
}

func NewService(repo Repository, currencies CurrencyLookup) *Service {
	return &Service{repo: repo, currencies: currencies}
}

type CreateInput struct {
	Name         string
	City         string
	Country      string
	CurrencyCode string
}

// Create registers a wallet with a zero balance. Balances only change
// through settled transactions.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Wallet, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	cur, err := s.currencies.GetByCode(ctx, in.CurrencyCode)
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		Name:       name,
		City:       strings.TrimSpace(in.City),
		Country:    strings.TrimSpace(in.Country),
		CurrencyID: cur.ID,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	log.Info().
		Str("wallet_id", w.ID.String()).
		Str("name", w.Name).
		Str("currency", cur.Code).
		Msg("wallet created")
	return w, nil
}

func (s *Service) Get(ctx context.Context, name string) (*Wallet, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *Service) List(ctx context.Context) ([]*Wallet, error) {
	return s.repo.List(ctx)
}
