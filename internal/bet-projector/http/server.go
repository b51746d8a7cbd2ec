package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/bet-projector/repository"
)

// History é o lado de leitura do read model
type History interface {
	ListMarkets(ctx context.Context, category string) ([]repository.MarketView, error)
	GetMarket(ctx context.Context, address string) (repository.MarketView, error)
	ListWagers(ctx context.Context, market string) ([]repository.WagerView, error)
	ListPayouts(ctx context.Context, market string) ([]repository.PayoutView, error)
}

// API expõe o histórico projetado dos mercados
type API struct {
	Log  *zap.Logger
	Repo History
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/v1/history/markets", a.listMarkets)      // ?category=NBA
	r.Get("/v1/history/markets/{addr}", a.getMarket) // snapshot projetado
	r.Get("/v1/history/markets/{addr}/wagers", a.listWagers)
	r.Get("/v1/history/markets/{addr}/payouts", a.listPayouts)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// market normaliza o endereço para o formato gravado pelos eventos (checksum)
func market(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "addr")
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid market address"})
		return "", false
	}
	return common.HexToAddress(raw).Hex(), true
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if a.Log != nil {
		a.Log.Error("history query failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (a *API) listMarkets(w http.ResponseWriter, r *http.Request) {
	ms, err := a.Repo.ListMarkets(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) getMarket(w http.ResponseWriter, r *http.Request) {
	addr, ok := market(w, r)
	if !ok {
		return
	}
	m, err := a.Repo.GetMarket(r.Context(), addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) listWagers(w http.ResponseWriter, r *http.Request) {
	addr, ok := market(w, r)
	if !ok {
		return
	}
	ws, err := a.Repo.ListWagers(r.Context(), addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) listPayouts(w http.ResponseWriter, r *http.Request) {
	addr, ok := market(w, r)
	if !ok {
		return
	}
	ps, err := a.Repo.ListPayouts(r.Context(), addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
