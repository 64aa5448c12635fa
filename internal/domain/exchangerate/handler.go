package exchangerate

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

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
	Currency string          `json:"currency" validate:"required,iso_code"`
	Rate     decimal.Decimal `json:"rate" validate:"required,gt=0"`
	Created  *time.Time      `json:"created"`
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

	rate, err := h.svc.Create(r.Context(), CreateInput{
		CurrencyCode: req.Currency,
		Rate:         req.Rate,
		Created:      req.Created,
	})
	if err != nil {
		switch {
		case errors.Is(err, currency.ErrCurrencyNotFound):
			response.NotFound(w, "currency not found")
		case errors.Is(err, ErrInvalidRate):
			response.BadRequest(w, "rate must be positive")
		case errors.Is(err, ErrDuplicateRate):
			response.Conflict(w, "a rate for this currency at this time already exists")
		default:
			logger.FromContext(r.Context()).Error().Err(err).Str("currency", req.Currency).Msg("create exchange rate failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, rate)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("currency")
	if code == "" {
		response.BadRequest(w, "currency query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rates, err := h.svc.List(r.Context(), code, limit)
	if err != nil {
		if errors.Is(err, currency.ErrCurrencyNotFound) {
			response.NotFound(w, "currency not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Str("currency", code).Msg("list exchange rates failed")
		response.InternalError(w)
		return
	}
	if rates == nil {
		rates = []*Rate{}
	}
	response.OK(w, rates)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	return r
}
