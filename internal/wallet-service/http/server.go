package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/wallet-service/dto"
	"github.com/bingozwb/bet-center/internal/wallet-service/repo"
)

// Repo define as operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, address string) (walletID string, balance *big.Int, err error)
	Deposit(ctx context.Context, address string, amount *big.Int, externalRef string) (walletID string, newBalance *big.Int, err error)
	Reserve(ctx context.Context, address string, amount *big.Int, externalRef string) (reservationID string, err error)
	Commit(ctx context.Context, address, externalRef string) error
	Refund(ctx context.Context, address, externalRef string) error
}

// Server expõe a carteira por endereço: saldo, crédito e o ciclo reserve/commit/refund
type Server struct {
	log  *zap.Logger
	repo Repo
}

func NewServer(log *zap.Logger, repo Repo) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, repo: repo}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.getWallet)       // ?address=0x...
	mux.HandleFunc("POST /wallet/deposit", s.deposit) // também usado para pagamentos
	mux.HandleFunc("POST /wallet/reserve", s.reserve)
	mux.HandleFunc("POST /wallet/commit", s.commit)
	mux.HandleFunc("POST /wallet/refund", s.refund)
	return mux
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if !common.IsHexAddress(addr) {
		http.Error(w, "address required", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), addr)
	if err != nil {
		s.log.Error("get wallet", zap.String("address", addr), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{Address: common.HexToAddress(addr).Hex(), WalletID: walletID, Balance: bal.String()})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	amount, ok := positive(req.Amount)
	if !common.IsHexAddress(req.Address) || !ok {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.repo.Deposit(r.Context(), req.Address, amount, req.ExternalRef)
	if err != nil {
		s.log.Error("deposit", zap.String("address", req.Address), zap.String("ref", req.ExternalRef), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{Address: common.HexToAddress(req.Address).Hex(), WalletID: walletID, Balance: bal.String()})
}

func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	amount, ok := positive(req.Amount)
	if !common.IsHexAddress(req.Address) || !ok || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	resID, err := s.repo.Reserve(r.Context(), req.Address, amount, req.ExternalRef)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			http.Error(w, "wallet not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrInsufficientFunds):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			s.log.Error("reserve", zap.String("address", req.Address), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, dto.ReservationResponse{ReservationID: resID, Status: "PENDING"})
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	var req dto.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.Address) || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Commit(r.Context(), req.Address, req.ExternalRef); err != nil {
		s.settleError(w, "commit", err)
		return
	}
	writeJSON(w, map[string]string{"status": "COMMITTED"})
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.Address) || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Refund(r.Context(), req.Address, req.ExternalRef); err != nil {
		s.settleError(w, "refund", err)
		return
	}
	writeJSON(w, map[string]string{"status": "REFUNDED"})
}

func (s *Server) settleError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "reservation not found", http.StatusNotFound)
		return
	}
	s.log.Error(op, zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// positive aceita apenas inteiros decimais > 0
func positive(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
