package settlement_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/paysys/wallet-ledger/internal/domain/settlement"
	"github.com/paysys/wallet-ledger/internal/middleware"
)

func TestRunHandler(t *testing.T) {
	f := newFixture(t)
	w := f.addWallet("alice", f.usd, 0)
	f.refill(w, f.usd, "1")
	f.refill(w, f.usd, "1")

	r := chi.NewRouter()
	r.Mount("/settlement", settlement.NewHandler(f.processor(nil, settlement.Config{})).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settlement/run", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Settled int    `json:"settled"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Data.Settled != 2 || body.Data.Message != "2 transactions processed" {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
}

type unavailableUoW struct{}

func (unavailableUoW) Do(context.Context, func(ctx context.Context, s settlement.Stores) error) error {
	return errConnReset
}

func TestRunHandlerLogsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = orig }()

	f := newFixture(t)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/settlement", settlement.NewHandler(f.processor(unavailableUoW{}, settlement.Config{})).Routes())

	req := httptest.NewRequest(http.MethodPost, "/settlement/run", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-42"`)) ||
		!bytes.Contains(buf.Bytes(), []byte("manual settlement cycle failed")) {
		t.Fatalf("expected failure logged with request id, got %s", out)
	}
}
