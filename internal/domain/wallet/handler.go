package wallet

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paysys/wallet-ledger/internal/domain/currency"
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

type createRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	City     string `json:"city" validate:"max=128"`
	Country  string `json:"country" validate:"max=128"`
	Currency string `json:"currency" validate:"required,iso_code"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	wl, err := h.svc.Create(r.Context(), CreateInput{
		Name:         req.Name,
		City:         req.City,
		Country:      req.Country,
		CurrencyCode: req.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateName):
			response.Conflict(w, "wallet name already taken")
		case errors.Is(err, ErrInvalidName):
			response.BadRequest(w, "wallet name is required")
		case errors.Is(err, currency.ErrCurrencyNotFound):
			response.NotFound(w, "currency not found")
		default:
			logger.FromContext(r.Context()).Error().Err(err).Str("name", req.Name).Msg("create wallet failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, wl)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	wl, err := h.svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			response.NotFound(w, "wallet not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("get wallet failed")
		response.InternalError(w)
		return
	}
	response.OK(w, wl)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("list wallets failed")
		response.InternalError(w)
		return
	}
	if items == nil {
		items = []*Wallet{}
	}
	response.OK(w, items)
}

// Register mounts wallet routes on r. Per-wallet transaction and history
// routes live beside these under /{name}.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{name}", h.Get)
}
