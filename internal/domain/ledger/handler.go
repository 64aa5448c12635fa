package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paysys/wallet-ledger/internal/domain/wallet"
	"github.com/paysys/wallet-ledger/internal/pkg/logger"
	"github.com/paysys/wallet-ledger/internal/pkg/response"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// History serves GET /wallets/{name}/history?start_date=&end_date=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	var filter HistoryFilter
	var err error

	if filter.From, err = parseDate(r.URL.Query().Get("start_date"), false); err != nil {
		response.BadRequest(w, "invalid start_date")
		return
	}
	if filter.To, err = parseDate(r.URL.Query().Get("end_date"), true); err != nil {
		response.BadRequest(w, "invalid end_date")
		return
	}

	stmt, err := h.svc.History(r.Context(), chi.URLParam(r, "name"), filter)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrWalletNotFound):
			response.NotFound(w, "wallet not found")
		case errors.Is(err, ErrNoHistory):
			response.NotFound(w, "There are no transactions for this wallet.")
		case errors.Is(err, ErrInvalidRange):
			response.BadRequest(w, err.Error())
		default:
			logger.FromContext(r.Context()).Error().Err(err).Msg("list wallet history failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, stmt)
}

// parseDate accepts RFC3339, "2006-01-02 15:04:05" or a bare date. A bare
// end date covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if endOfDay && i == len(dateLayouts)-1 {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, errors.New("unrecognised date")
}
