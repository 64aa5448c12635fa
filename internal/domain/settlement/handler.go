package settlement

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paysys/wallet-ledger/internal/pkg/logger"
	"github.com/paysys/wallet-ledger/internal/pkg/response"
)

type Handler struct {
	proc *Processor
}

func NewHandler(proc *Processor) *Handler {
	return &Handler{proc: proc}
}

type runResponse struct {
	CycleResult
	Message string `json:"message"`
}

// Run triggers one poll cycle synchronously.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.proc.RunCycle(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("manual settlement cycle failed")
		response.Error(w, http.StatusServiceUnavailable, "SETTLEMENT_UNAVAILABLE", "settlement cycle could not complete")
		return
	}
	response.OK(w, runResponse{
		CycleResult: res,
		Message:     fmt.Sprintf("%d transactions processed", res.Settled),
	})
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/run", h.Run)
	return r
}
