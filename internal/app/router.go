package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/exchangerate"
	"github.com/paysys/wallet-ledger/internal/domain/ledger"
	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/domain/transaction"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/middleware"
	"github.com/paysys/wallet-ledger/internal/pkg/response"
)

// Router builds the HTTP API over the App's services.
func (a *App) Router() http.Handler {
	// ---------- Services ----------
	rateService := exchangerate.NewService(a.Rates, a.Currencies, a.Notifier)
	walletService := wallet.NewService(a.Wallets, a.Currencies)
	ledgerService := ledger.NewService(a.Ledger, a.Wallets)
	txService := transaction.NewService(a.Transactions, a.Wallets, a.Currencies, a.Rates, a.Notifier)

	// ---------- Handlers ----------
	currencyHandler := currency.NewHandler(a.Currencies)
	rateHandler := exchangerate.NewHandler(rateService)
	walletHandler := wallet.NewHandler(walletService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	txHandler := transaction.NewHandler(txService)
	settlementHandler := settlement.NewHandler(a.Processor)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(a.Config.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"storage": a.Config.StorageDriver,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/currencies", currencyHandler.Routes())
		r.Mount("/exchange-rates", rateHandler.Routes())
		r.Mount("/transactions", txHandler.Routes())
		r.Mount("/settlement", settlementHandler.Routes())

		r.Route("/wallets", func(r chi.Router) {
			walletHandler.Register(r)
			r.Post("/{name}/refill", txHandler.RefillByName)
			r.Post("/{name}/transfer/{to}", txHandler.TransferByName)
			r.Get("/{name}/history", ledgerHandler.History)
		})
	})

	return r
}
