// Package app wires configuration, storage and domain services together
// for the binaries under cmd/.
package app

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/paysys/wallet-ledger/internal/config"
	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/database"
	"github.com/paysys/wallet-ledger/internal/pkg/events"
	"github.com/paysys/wallet-ledger/internal/pkg/wakeup"
	"github.com/paysys/wallet-ledger/internal/storage/memory"
	"github.com/paysys/wallet-ledger/internal/storage/postgres"
)

type App struct {
	Config *config.Config

	DB        *sqlx.DB
	Redis     *redis.Client
	Publisher events.Publisher

	// Wake receives a signal whenever new work may be settleable.
	Wake     chan struct{}
	Notifier wakeup.Notifier

	currencyRepo currency.Repository

	Currencies   *currency.Registry
	Wallets      wallet.Repository
	Rates        exchangerate.Repository
	Ledger       ledger.Repository
	Transactions transaction.Repository
	UnitOfWork   settlement.UnitOfWork
	Processor    *settlement.Processor
}

// New connects to the configured backends. Memory storage keeps all
// state in process and needs neither PostgreSQL nor Redis.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Wake: make(chan struct{}, 1)}

	if cfg.UsesMemoryStorage() {
		log.Warn().Msg("Using in-memory storage, state is lost on exit")
		if err := a.useMemory(memory.New()); err != nil {
			return nil, err
		}
	} else {
		if cfg.RunMigrations {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.usePostgres(db)
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rdb

	a.Publisher = events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	a.wire(currency.NewCache(rdb))
	return a, nil
}

// NewInMemory builds an App over a fresh memory store with no external
// services. Used by tests and local demos.
func NewInMemory(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Wake: make(chan struct{}, 1), Publisher: events.NoopPublisher{}}
	if err := a.useMemory(memory.New()); err != nil {
		return nil, err
	}
	a.wire(currency.NewLocalCache())
	return a, nil
}

func (a *App) useMemory(store *memory.Store) error {
	if err := seed(context.Background(), store); err != nil {
		return err
	}
	a.currencyRepo = store.Currencies()
	a.Wallets = store.Wallets()
	a.Rates = store.Rates()
	a.Ledger = store.Ledger()
	a.Transactions = store.Transactions()
	a.UnitOfWork = store
	return nil
}

func (a *App) usePostgres(db *sqlx.DB) {
	a.currencyRepo = currency.NewRepository(db)
	a.Wallets = wallet.NewRepository(db)
	a.Rates = exchangerate.NewRepository(db)
	a.Ledger = ledger.NewRepository(db)
	a.Transactions = transaction.NewRepository(db)
	a.UnitOfWork = postgres.NewUnitOfWork(db)
}

func (a *App) wire(cache currency.Cache) {
	a.Currencies = currency.NewRegistry(a.currencyRepo, cache)
	a.Notifier = wakeup.NewLocal(a.Wake, wakeup.New(a.Redis))
	a.Processor = settlement.NewProcessor(a.UnitOfWork, a.Currencies, a.Publisher, settlement.Config{
		BatchSize:     a.Config.BatchSize,
		MaxAttempts:   a.Config.MaxAttempts,
		MaxPendingAge: a.Config.MaxPendingAge,
		LookupTimeout: a.Config.LookupTimeout,
	})
}

// NewWorker returns a settlement worker woken by local notifications and,
// when Redis is configured, by other processes.
func (a *App) NewWorker() *settlement.Worker {
	return settlement.NewWorker(a.Processor, a.Config.PollInterval, a.Config.CycleTimeout, a.Wake)
}

func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event publisher")
		}
	}
	database.CloseRedis(a.Redis)
	database.ClosePostgres(a.DB)
}

var errNoDatabase = errors.New("settlement worker requires PostgreSQL storage")

// RequireDatabase fails for memory storage, whose state cannot be shared
// with another process.
func (a *App) RequireDatabase() error {
	if a.DB == nil {
		return errNoDatabase
	}
	return nil
}
