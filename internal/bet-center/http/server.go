package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/bet"
	"github.com/bingozwb/bet-center/internal/bet-center/dto"
	"github.com/bingozwb/bet-center/internal/bet-center/registry"
	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// CallerHeader identifica quem está chamando (equivalente ao msg.sender)
const CallerHeader = "X-Caller-Address"

// Funds é a parte da wallet usada para custodiar stakes e colateral
type Funds interface {
	Reserve(ctx context.Context, owner common.Address, amount *big.Int, ref string) (string, error)
	Commit(ctx context.Context, owner common.Address, ref string) error
	Refund(ctx context.Context, owner common.Address, ref string) error
}

// Publisher entrega os eventos produzidos pelas operações
type Publisher interface {
	Publish(ctx context.Context, evs ...events.Event) error
}

// LatestEvents lê o último evento projetado de um mercado (cache do projector)
type LatestEvents interface {
	Latest(ctx context.Context, market string) (events.Envelope, bool, error)
}

// Hooks são callbacks de métricas, todos opcionais
type Hooks struct {
	OnMarketCreated func(category string)
	OnWager         func(result string) // accepted | código do erro
	OnDeposit       func()
	OnSettlement    func(paid, failed int)
}

type Server struct {
	log   *zap.Logger
	reg   *registry.Registry
	funds Funds
	publ  Publisher
	hooks Hooks

	// WS é montado em /ws quando presente
	WS http.Handler
	// Latest habilita GET /v1/markets/{addr}/latest
	Latest LatestEvents
}

func NewServer(log *zap.Logger, reg *registry.Registry, funds Funds, publ Publisher, hooks Hooks) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, reg: reg, funds: funds, publ: publ, hooks: hooks}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/markets", s.createMarket)
	r.Get("/v1/categories/{category}/markets", s.betsByCategory)

	r.Route("/v1/markets/{addr}", func(r chi.Router) {
		r.Get("/", s.getMarket)
		r.Get("/players", s.listPlayers)
		r.Get("/players/{player}", s.playerInfo)
		r.Post("/bets", s.placeBet)
		r.Post("/deposit", s.rechargeDeposit)
		r.Post("/close", s.closeBet)
		r.Post("/settle", s.continueSettlement)
		r.Post("/payouts/retry", s.retryPayouts)
		if s.Latest != nil {
			r.Get("/latest", s.latestEvent)
		}
	})

	if s.WS != nil {
		r.Get("/ws", s.WS.ServeHTTP)
	}
	return r
}

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	dealer, ok := caller(w, r)
	if !ok {
		return
	}
	var req dto.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "bad json")
		return
	}
	minStake, ok1 := parseAmount(req.MinimumStake)
	deposit, ok2 := parseAmount(req.Deposit)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "BadRequest", "minimum_stake and deposit must be decimal integers")
		return
	}
	odds := bet.OddsTable{
		Category:        req.Category,
		ExternalEventID: req.ExternalEventID,
		MinimumStake:    minStake,
		Handicap:        req.Handicap,
		Odds:            [3]uint64{req.LeftOdds, req.MiddleOdds, req.RightOdds},
		Format:          bet.Format(req.Format),
		StartTime:       req.StartTime,
		Duration:        req.Duration,
	}
	// rejeita configuração inválida antes de mexer na wallet
	if err := odds.Validate(); err != nil {
		s.fail(w, err)
		return
	}
	if deposit.Sign() <= 0 {
		s.fail(w, fmt.Errorf("%w: deposit must be positive", bet.ErrInvalidConfiguration))
		return
	}

	ref := "collateral:" + uuid.NewString()
	if _, err := s.funds.Reserve(r.Context(), dealer, deposit, ref); err != nil {
		s.log.Warn("collateral reserve failed", zap.String("dealer", dealer.Hex()), zap.Error(err))
		writeError(w, http.StatusConflict, "FundsUnavailable", "wallet reserve failed")
		return
	}

	m, rec, err := s.reg.CreateMarket(dealer, odds, deposit)
	if err != nil {
		s.refund(r.Context(), dealer, ref)
		s.fail(w, err)
		return
	}
	if err := s.funds.Commit(r.Context(), dealer, ref); err != nil {
		// o mercado já existe; o colateral fica pendente na wallet para reconciliação
		s.log.Error("collateral commit failed", zap.String("market", m.Address().Hex()), zap.String("ref", ref), zap.Error(err))
	}

	s.publish(r.Context(), rec.Events)
	if s.hooks.OnMarketCreated != nil {
		s.hooks.OnMarketCreated(odds.Category)
	}
	s.log.Info("market created",
		zap.String("market", m.Address().Hex()),
		zap.String("category", odds.Category),
		zap.String("dealer", dealer.Hex()),
	)
	writeJSON(w, http.StatusCreated, marketResponse(m.Snapshot()))
}

func (s *Server) betsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	list := s.reg.BetsByCategory(category)
	out := dto.CategoryMarketsResponse{Category: category, Markets: make([]string, 0, len(list))}
	for _, a := range list {
		out.Markets = append(out.Markets, a.Hex())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, marketResponse(m.Snapshot()))
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	roster := m.Roster()
	out := dto.PlayersResponse{Market: m.Address().Hex(), Players: make([]string, 0, len(roster))}
	for _, p := range roster {
		out.Players = append(out.Players, p.Hex())
	}
	writeJSON(w, http.StatusOK, out)
}

// playerInfo devolve amount 0 e outcome 0 para quem não apostou
func (s *Server) playerInfo(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	player, ok := parseAddress(chi.URLParam(r, "player"))
	if !ok {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid player address")
		return
	}
	out := dto.PlayerInfoResponse{Market: m.Address().Hex(), Player: player.Hex(), Amount: "0"}
	if pos, found := m.PlayerInfo(player); found {
		out.Amount = pos.Amount.String()
		out.Outcome = uint8(pos.Outcome)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) latestEvent(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	env, found, err := s.Latest.Latest(r.Context(), m.Address().Hex())
	if err != nil {
		s.log.Warn("latest event lookup failed", zap.String("market", m.Address().Hex()), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "CacheUnavailable", "latest event unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "NoEvents", "no projected events yet")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// placeBet: reserva o stake na wallet, admite no mercado e então
// confirma (commit) ou devolve (refund) a reserva.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	sender, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "bad json")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "BadRequest", "amount must be a decimal integer")
		return
	}

	// recusa antes de tocar na carteira: o erro do mercado tem precedência
	if err := m.CheckWager(sender, bet.Outcome(req.Outcome), amount); err != nil {
		s.wagerResult(codeFor(err))
		s.fail(w, err)
		return
	}

	ref := fmt.Sprintf("stake:%s:%s:%s", m.Address().Hex(), sender.Hex(), uuid.NewString())
	if _, err := s.funds.Reserve(r.Context(), sender, amount, ref); err != nil {
		s.log.Warn("stake reserve failed", zap.String("participant", sender.Hex()), zap.Error(err))
		s.wagerResult("FundsUnavailable")
		writeError(w, http.StatusConflict, "FundsUnavailable", "wallet reserve failed")
		return
	}

	rec, err := m.PlaceBet(sender, bet.Outcome(req.Outcome), amount)
	if err != nil {
		s.refund(r.Context(), sender, ref)
		s.wagerResult(codeFor(err))
		s.fail(w, err)
		return
	}
	if err := s.funds.Commit(r.Context(), sender, ref); err != nil {
		s.log.Error("stake commit failed", zap.String("market", m.Address().Hex()), zap.String("ref", ref), zap.Error(err))
	}

	// total visto sob o lock do mercado, não o atual
	placed := rec.Events[0].(*events.WagerPlaced)
	s.publish(r.Context(), rec.Events)
	s.wagerResult("accepted")

	writeJSON(w, http.StatusCreated, dto.WagerResponse{
		Market:      m.Address().Hex(),
		Participant: sender.Hex(),
		Outcome:     req.Outcome,
		Amount:      amount.String(),
		TotalStaked: placed.TotalStaked,
	})
}

func (s *Server) rechargeDeposit(w http.ResponseWriter, r *http.Request) {
	sender, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	var req dto.RechargeDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "bad json")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "BadRequest", "amount must be a decimal integer")
		return
	}
	if err := m.CheckRecharge(amount); err != nil {
		s.fail(w, err)
		return
	}

	ref := "recharge:" + uuid.NewString()
	if _, err := s.funds.Reserve(r.Context(), sender, amount, ref); err != nil {
		s.log.Warn("recharge reserve failed", zap.String("from", sender.Hex()), zap.Error(err))
		writeError(w, http.StatusConflict, "FundsUnavailable", "wallet reserve failed")
		return
	}
	rec, err := m.RechargeDeposit(sender, amount)
	if err != nil {
		s.refund(r.Context(), sender, ref)
		s.fail(w, err)
		return
	}
	if err := s.funds.Commit(r.Context(), sender, ref); err != nil {
		s.log.Error("recharge commit failed", zap.String("market", m.Address().Hex()), zap.String("ref", ref), zap.Error(err))
	}

	s.publish(r.Context(), rec.Events)
	if s.hooks.OnDeposit != nil {
		s.hooks.OnDeposit()
	}
	recharged := rec.Events[0].(*events.DepositRecharged)
	writeJSON(w, http.StatusOK, dto.DepositResponse{Market: m.Address().Hex(), Deposit: recharged.Deposit})
}

func (s *Server) closeBet(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	var req dto.CloseBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "bad json")
		return
	}
	// pagamentos seguem mesmo que o cliente desconecte
	ctx := context.WithoutCancel(r.Context())
	st, err := m.ManualCloseBet(ctx, admin, bet.Score{Left: req.LeftPoints, Right: req.RightPoints})
	s.settled(ctx, w, m, st, err)
}

func (s *Server) continueSettlement(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	st, err := m.ContinueSettlement(ctx, admin)
	s.settled(ctx, w, m, st, err)
}

func (s *Server) retryPayouts(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	st, err := m.RetryFailedPayouts(ctx, admin)
	s.settled(ctx, w, m, st, err)
}

// settled publica o que foi produzido (mesmo em liquidação parcial) e responde
func (s *Server) settled(ctx context.Context, w http.ResponseWriter, m *bet.Market, st *bet.Settlement, err error) {
	if st != nil {
		s.publish(ctx, st.Events)
		if s.hooks.OnSettlement != nil {
			s.hooks.OnSettlement(st.Paid, st.Failed)
		}
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("settlement step",
		zap.String("market", m.Address().Hex()),
		zap.Int("paid", st.Paid),
		zap.Int("failed", st.Failed),
		zap.Int("remaining", st.Remaining),
		zap.Bool("done", st.Done),
	)
	writeJSON(w, http.StatusOK, dto.SettlementResponse{
		Market:         m.Address().Hex(),
		Status:         m.Status().String(),
		WinningOutcome: uint8(m.WinningOutcome()),
		Paid:           st.Paid,
		Failed:         st.Failed,
		Remaining:      st.Remaining,
		Done:           st.Done,
	})
}

func (s *Server) market(w http.ResponseWriter, r *http.Request) (*bet.Market, bool) {
	addr, ok := parseAddress(chi.URLParam(r, "addr"))
	if !ok {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid market address")
		return nil, false
	}
	m, err := s.reg.Market(addr)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return m, true
}

func (s *Server) publish(ctx context.Context, evs []events.Event) {
	if s.publ == nil || len(evs) == 0 {
		return
	}
	if err := s.publ.Publish(ctx, evs...); err != nil {
		s.log.Warn("publish events failed", zap.Int("count", len(evs)), zap.Error(err))
	}
}

func (s *Server) refund(ctx context.Context, owner common.Address, ref string) {
	if err := s.funds.Refund(ctx, owner, ref); err != nil {
		s.log.Error("refund failed", zap.String("owner", owner.Hex()), zap.String("ref", ref), zap.Error(err))
	}
}

func (s *Server) wagerResult(result string) {
	if s.hooks.OnWager != nil {
		s.hooks.OnWager(result)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, codeFor(err), err.Error())
}

// statusFor mapeia os erros de domínio para HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, bet.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, bet.ErrInvalidConfiguration),
		errors.Is(err, bet.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, bet.ErrMarketClosed),
		errors.Is(err, bet.ErrAlreadyClosed),
		errors.Is(err, bet.ErrStakeTooSmall),
		errors.Is(err, bet.ErrInvalidOutcome),
		errors.Is(err, bet.ErrInsufficientCollateral),
		errors.Is(err, bet.ErrAlreadyWagered),
		errors.Is(err, bet.ErrNotSettling):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, registry.ErrMarketNotFound):
		return "MarketNotFound"
	case errors.Is(err, bet.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, bet.ErrInvalidConfiguration):
		return "InvalidConfiguration"
	case errors.Is(err, bet.ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, bet.ErrMarketClosed):
		return "MarketClosed"
	case errors.Is(err, bet.ErrAlreadyClosed):
		return "AlreadyClosed"
	case errors.Is(err, bet.ErrStakeTooSmall):
		return "StakeTooSmall"
	case errors.Is(err, bet.ErrInvalidOutcome):
		return "InvalidOutcome"
	case errors.Is(err, bet.ErrInsufficientCollateral):
		return "InsufficientCollateral"
	case errors.Is(err, bet.ErrAlreadyWagered):
		return "AlreadyWagered"
	case errors.Is(err, bet.ErrNotSettling):
		return "NotSettling"
	default:
		return "Internal"
	}
}

func marketResponse(s bet.Snapshot) dto.MarketResponse {
	staked := make(map[string]string, len(s.StakedByOutcome))
	for o, v := range s.StakedByOutcome {
		staked[strconv.Itoa(int(o))] = v.String()
	}
	return dto.MarketResponse{
		Address:         s.Address.Hex(),
		Dealer:          s.Dealer.Hex(),
		Admin:           s.Admin.Hex(),
		Category:        s.Odds.Category,
		ExternalEventID: s.Odds.ExternalEventID,
		MinimumStake:    s.Odds.MinimumStake.String(),
		Handicap:        s.Odds.Handicap,
		LeftOdds:        s.Odds.Odds[0],
		MiddleOdds:      s.Odds.Odds[1],
		RightOdds:       s.Odds.Odds[2],
		Format:          uint8(s.Odds.Format),
		StartTime:       s.Odds.StartTime,
		Duration:        s.Odds.Duration,

		Status:          s.Status.String(),
		Deposit:         s.Deposit.String(),
		TotalStaked:     s.TotalStaked.String(),
		StakedByOutcome: staked,
		Balance:         s.Balance.String(),
		PaidOut:         s.PaidOut.String(),
		LeftPoints:      s.FinalScore.Left,
		RightPoints:     s.FinalScore.Right,
		WinningOutcome:  uint8(s.WinningOutcome),
		Players:         s.Players,
		Settled:         s.Settled,
		FailedPayouts:   s.FailedPayouts,
	}
}

func caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, ok := parseAddress(r.Header.Get(CallerHeader))
	if !ok {
		writeError(w, http.StatusUnauthorized, "MissingCaller", CallerHeader+" header must be a hex address")
		return common.Address{}, false
	}
	return addr, true
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
