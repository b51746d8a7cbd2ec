package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Targets são as URLs base dos serviços atrás do gateway
type Targets struct {
	BetCenter string
	Wallet    string
	History   string // opcional
}

func proxy(log *zap.Logger, name, to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s url %q", name, to)
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("upstream", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, name+" unavailable", http.StatusBadGateway)
	}
	return rp, nil
}

// NewRouter monta as rotas públicas:
//
//	/api/bets/*   -> bet-center (mercados, apostas, liquidação)
//	/api/wallet/* -> wallet-service
//	/api/history/* -> bet-projector (read model), se configurado
//	/ws           -> bet-center (feed de notificações)
func NewRouter(log *zap.Logger, t Targets) (http.Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bet, err := proxy(log, "bet-center", t.BetCenter)
	if err != nil {
		return nil, err
	}
	wallet, err := proxy(log, "wallet-service", t.Wallet)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Caller-Address"},
		MaxAge:         300,
	}))

	r.Mount("/api/bets", http.StripPrefix("/api/bets", bet))
	r.Mount("/api/wallet", http.StripPrefix("/api/wallet", wallet))
	if t.History != "" {
		hist, err := proxy(log, "bet-projector", t.History)
		if err != nil {
			return nil, err
		}
		r.Mount("/api/history", http.StripPrefix("/api/history", hist))
	}
	r.Handle("/ws", bet)
	return r, nil
}
