package exchangerate

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/pkg/wakeup"
)

type CurrencyLookup interface {
	GetByCode(ctx context.Context, code string) (*currency.Currency, error)
}

type Service struct {
	repo       Repository
	currencies CurrencyLookup
	notifier   wakeup.Notifier
	now        func() time.Time
}

func NewService(repo Repository, currencies CurrencyLookup, notifier wakeup.Notifier) *Service {
	if notifier == nil {
		notifier = wakeup.Noop{}
	}
	return &Service{repo: repo, currencies: currencies, notifier: notifier, now: time.Now}
}

type CreateInput struct {
	CurrencyCode string
	Rate         decimal.Decimal
	Created      *time.Time
}

// Create appends a quote. Pending transactions waiting on this currency may
// now settle, so workers are woken.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Rate, error) {
	if !in.Rate.IsPositive() {
		return nil, ErrInvalidRate
	}
	cur, err := s.currencies.GetByCode(ctx, in.CurrencyCode)
	if err != nil {
		return nil, err
	}

	created := s.now().UTC()
	if in.Created != nil {
		created = in.Created.UTC()
	}

	rate := &Rate{CurrencyID: cur.ID, Rate: in.Rate, Created: created}
	if err := s.repo.Create(ctx, rate); err != nil {
		return nil, err
	}

	if err := s.notifier.Notify(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to publish settlement wake-up")
	}

	log.Info().
		Str("currency", cur.Code).
		Str("rate", rate.Rate.String()).
		Time("created", rate.Created).
		Msg("exchange rate recorded")
	return rate, nil
}

func (s *Service) List(ctx context.Context, code string, limit int) ([]*Rate, error) {
	cur, err := s.currencies.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cur.ID, limit)
}
