package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/wakeup"
)

// maxAmountScale is the number of decimal places the amount column keeps.
const maxAmountScale = 8

type WalletLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error)
	GetByName(ctx context.Context, name string) (*wallet.Wallet, error)
}

type CurrencyLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*currency.Currency, error)
}

type RateLookup interface {
	RateAtOrBefore(ctx context.Context, currencyID uuid.UUID, asOf time.Time) (*exchangerate.Rate, error)
}

type Service struct {
	repo       Repository
	wallets    WalletLookup
	currencies CurrencyLookup
	rates      RateLookup
	notifier   wakeup.Notifier
	now        func() time.Time
}

func NewService(repo Repository, wallets WalletLookup, currencies CurrencyLookup, rates RateLookup, notifier wakeup.Notifier) *Service {
	if notifier == nil {
		notifier = wakeup.Noop{}
	}
	return &Service{
		repo:       repo,
		wallets:    wallets,
		currencies: currencies,
		rates:      rates,
		notifier:   notifier,
		now:        time.Now,
	}
}

// WithClock replaces the enqueue timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type RefillInput struct {
	WalletToID uuid.UUID
	// CurrencyID defaults to the wallet's currency when Nil.
	CurrencyID uuid.UUID
	Amount     decimal.Decimal
}

type TransferInput struct {
	WalletFromID uuid.UUID
	WalletToID   uuid.UUID
	CurrencyUse  CurrencyUse
	Amount       decimal.Decimal
}

func (s *Service) EnqueueRefill(ctx context.Context, in RefillInput) (*Transaction, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	to, err := s.wallets.Get(ctx, in.WalletToID)
	if err != nil {
		return nil, err
	}

	currencyID := in.CurrencyID
	if currencyID == uuid.Nil {
		currencyID = to.CurrencyID
	} else if _, err := s.currencies.Get(ctx, currencyID); err != nil {
		return nil, err
	}

	return s.enqueue(ctx, &Transaction{
		Kind:       KindRefill,
		WalletToID: to.ID,
		CurrencyID: currencyID,
		Amount:     in.Amount,
	})
}

func (s *Service) EnqueueTransfer(ctx context.Context, in TransferInput) (*Transaction, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.WalletFromID == in.WalletToID {
		return nil, ErrSameWallet
	}

	from, err := s.wallets.Get(ctx, in.WalletFromID)
	if err != nil {
		return nil, err
	}
	to, err := s.wallets.Get(ctx, in.WalletToID)
	if err != nil {
		return nil, err
	}

	var currencyID uuid.UUID
	switch in.CurrencyUse {
	case CurrencyUseFrom:
		currencyID = from.CurrencyID
	case CurrencyUseTo:
		currencyID = to.CurrencyID
	default:
		return nil, ErrInvalidCurrencyUse
	}

	fromID := from.ID
	return s.enqueue(ctx, &Transaction{
		Kind:         KindTransfer,
		WalletFromID: &fromID,
		WalletToID:   to.ID,
		CurrencyID:   currencyID,
		Amount:       in.Amount,
	})
}

func (s *Service) RefillByName(ctx context.Context, walletName string, amount decimal.Decimal) (*Transaction, error) {
	to, err := s.wallets.GetByName(ctx, walletName)
	if err != nil {
		return nil, err
	}
	return s.EnqueueRefill(ctx, RefillInput{WalletToID: to.ID, Amount: amount})
}

func (s *Service) TransferByName(ctx context.Context, fromName, toName string, use CurrencyUse, amount decimal.Decimal) (*Transaction, error) {
	from, err := s.wallets.GetByName(ctx, fromName)
	if err != nil {
		return nil, err
	}
	to, err := s.wallets.GetByName(ctx, toName)
	if err != nil {
		return nil, err
	}
	return s.EnqueueTransfer(ctx, TransferInput{
		WalletFromID: from.ID,
		WalletToID:   to.ID,
		CurrencyUse:  use,
		Amount:       amount,
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

// enqueue stores tx as PENDING. A missing rate is not a rejection: quotes
// arrive asynchronously and the processor waits for one.
func (s *Service) enqueue(ctx context.Context, tx *Transaction) (*Transaction, error) {
	tx.Created = s.now().UTC()

	if _, err := s.rates.RateAtOrBefore(ctx, tx.CurrencyID, tx.Created); err != nil {
		if errors.Is(err, exchangerate.ErrRateNotFound) {
			log.Warn().
				Str("currency_id", tx.CurrencyID.String()).
				Str("kind", string(tx.Kind)).
				Msg("no exchange rate yet, transaction will wait for one")
		} else {
			log.Warn().Err(err).Msg("rate pre-check failed")
		}
	}

	if err := s.repo.Enqueue(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.notifier.Notify(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to publish settlement wake-up")
	}

	event := log.Info().
		Str("tx_id", tx.ID.String()).
		Str("kind", string(tx.Kind)).
		Str("wallet_to", tx.WalletToID.String()).
		Str("amount", tx.Amount.String())
	if tx.WalletFromID != nil {
		event = event.Str("wallet_from", tx.WalletFromID.String())
	}
	event.Msg("transaction enqueued")
	return tx, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.Exponent() < -maxAmountScale {
		return ErrInvalidAmount
	}
	return nil
}
