package ledger

import (
	"context"

	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

type WalletLookup interface {
	GetByName(ctx context.Context, name string) (*wallet.Wallet, error)
}

type Service struct {
	repo    Repository
	wallets WalletLookup
}

func NewService(repo Repository, wallets WalletLookup) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// Statement is the report payload for one wallet over a time range.
type Statement struct {
	Wallet  *wallet.Wallet `json:"wallet"`
	Entries []Entry        `json:"entries"`
}

func (s *Service) History(ctx context.Context, walletName string, filter HistoryFilter) (*Statement, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, ErrInvalidRange
	}

	w, err := s.wallets.GetByName(ctx, walletName)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, w.ID, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoHistory
	}
	return &Statement{Wallet: w, Entries: entries}, nil
}
