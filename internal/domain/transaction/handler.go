package transaction

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/logger"
	"github.com/paysys/wallet-ledger/internal/pkg/response"
	"github.com/paysys/wallet-ledger/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type refillRequest struct {
	WalletToID string          `json:"wallet_to_id" validate:"required,uuid"`
	CurrencyID string          `json:"currency_id" validate:"omitempty,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type transferRequest struct {
	WalletFromID string          `json:"wallet_from_id" validate:"required,uuid"`
	WalletToID   string          `json:"wallet_to_id" validate:"required,uuid,nefield=WalletFromID"`
	CurrencyUse  string          `json:"currency_use" validate:"required,currency_use"`
	Amount       decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type refillByNameRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type transferByNameRequest struct {
	CurrencyUse string          `json:"currency_use" validate:"required,currency_use"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) Refill(w http.ResponseWriter, r *http.Request) {
	var req refillRequest
	if !decode(w, r, &req) {
		return
	}

	in := RefillInput{WalletToID: uuid.MustParse(req.WalletToID), Amount: req.Amount}
	if req.CurrencyID != "" {
		in.CurrencyID = uuid.MustParse(req.CurrencyID)
	}

	tx, err := h.svc.EnqueueRefill(r.Context(), in)
	h.respond(w, r, tx, err)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}

	use, _ := ParseCurrencyUse(req.CurrencyUse)
	tx, err := h.svc.EnqueueTransfer(r.Context(), TransferInput{
		WalletFromID: uuid.MustParse(req.WalletFromID),
		WalletToID:   uuid.MustParse(req.WalletToID),
		CurrencyUse:  use,
		Amount:       req.Amount,
	})
	h.respond(w, r, tx, err)
}

// RefillByName serves POST /wallets/{name}/refill
func (h *Handler) RefillByName(w http.ResponseWriter, r *http.Request) {
	var req refillByNameRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := h.svc.RefillByName(r.Context(), chi.URLParam(r, "name"), req.Amount)
	h.respond(w, r, tx, err)
}

// TransferByName serves POST /wallets/{name}/transfer/{to}
func (h *Handler) TransferByName(w http.ResponseWriter, r *http.Request) {
	var req transferByNameRequest
	if !decode(w, r, &req) {
		return
	}
	use, _ := ParseCurrencyUse(req.CurrencyUse)
	tx, err := h.svc.TransferByName(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "to"), use, req.Amount)
	h.respond(w, r, tx, err)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			response.NotFound(w, "transaction not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Str("tx_id", id.String()).Msg("get transaction failed")
		response.InternalError(w)
		return
	}
	response.OK(w, tx)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, tx *Transaction, err error) {
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrWalletNotFound):
			response.NotFound(w, "wallet not found")
		case errors.Is(err, currency.ErrCurrencyNotFound):
			response.NotFound(w, "currency not found")
		case errors.Is(err, ErrInvalidAmount),
			errors.Is(err, ErrSameWallet),
			errors.Is(err, ErrInvalidCurrencyUse):
			response.BadRequest(w, err.Error())
		default:
			logger.FromContext(r.Context()).Error().Err(err).Msg("enqueue transaction failed")
			response.InternalError(w)
		}
		return
	}
	response.Accepted(w, tx)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := response.DecodeJSON(r.Body, dst); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	if errs := validator.Validate(dst); errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/refill", h.Refill)
	r.Post("/transfer", h.Transfer)
	r.Get("/{id}", h.Get)
	return r
}
