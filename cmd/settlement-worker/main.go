package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/paysys/wallet-ledger/internal/app"
	"github.com/paysys/wallet-ledger/internal/config"
	"github.com/paysys/wallet-ledger/internal/pkg/logger"
	"github.com/paysys/wallet-ledger/internal/pkg/wakeup"
)

func main() {
	cfg := config.Load()
	_ = logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
		Service:     "settlement-worker",
	})

	log.Info().Msg("Starting settlement-worker")

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer a.Close()

	if err := a.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("Unsupported storage driver")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional: Redis pub/sub wake-up (polling still runs)
	go wakeup.Subscribe(ctx, a.Redis, a.Wake)

	worker := a.NewWorker()
	worker.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("Shutting down settlement-worker")
	worker.Stop()
	log.Info().Msg("Settlement worker exited")
}
