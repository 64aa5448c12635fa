package currency

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paysys/wallet-ledger/internal/pkg/logger"
	"github.com/paysys/wallet-ledger/internal/pkg/response"
	"github.com/paysys/wallet-ledger/internal/pkg/validator"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type createRequest struct {
	Code       string `json:"code" validate:"required,iso_code"`
	Name       string `json:"name" validate:"required,max=64"`
	Fractional int64  `json:"fractional" validate:"required,gt=0"`
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

	c := &Currency{Code: req.Code, Name: req.Name, Fractional: req.Fractional}
	if err := h.registry.Create(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCode):
			response.Conflict(w, "currency code already exists")
		case errors.Is(err, ErrInvalidCurrency):
			response.BadRequest(w, "code is required and fractional must be positive")
		default:
			logger.FromContext(r.Context()).Error().Err(err).Str("code", req.Code).Msg("create currency failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("list currencies failed")
		response.InternalError(w)
		return
	}
	if items == nil {
		items = []*Currency{}
	}
	response.OK(w, items)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	return r
}
