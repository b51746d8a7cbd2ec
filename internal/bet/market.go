package bet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// Status do mercado: Open -> Closing -> Closed. Nunca volta para Open.
type Status uint8

const (
	StatusOpen Status = iota
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusClosing:
		return "CLOSING"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transferer é a primitiva de transferência do ledger (atômica, irreversível)
type Transferer interface {
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// Receipt carrega as notificações, em ordem, produzidas por uma operação
type Receipt struct {
	Events []events.Event
}

func (r *Receipt) emit(e events.Event) { r.Events = append(r.Events, e) }

// Score é o placar final informado pelo administrador
type Score struct {
	Left  uint32
	Right uint32
}

// Config reúne tudo que o registro passa ao criar um mercado
type Config struct {
	Address   common.Address
	Dealer    common.Address
	Admin     common.Address
	Odds      OddsTable
	Deposit   *big.Int
	Transfers Transferer

	// PayoutBatchSize limita quantas entradas do roster cada chamada de
	// liquidação percorre. 0 = tudo de uma vez.
	PayoutBatchSize int

	Log *zap.Logger
}

// FailedPayout é um pagamento que o ledger recusou e ficou pendente
type FailedPayout struct {
	Participant common.Address
	Amount      *big.Int
	Reason      string
}

// Market é uma instância de aposta para um único evento.
// Toda operação de escrita é serializada pelo mutex.
type Market struct {
	mu sync.Mutex

	addr   common.Address
	dealer common.Address
	admin  common.Address
	odds   OddsTable

	ledger *LiabilityLedger
	book   *ParticipantBook

	status  Status
	deposit *big.Int
	paidOut *big.Int

	finalScore Score
	winner     Outcome

	cursor int // próxima entrada do roster a liquidar
	paid   int
	failed []FailedPayout

	batch     int
	transfers Transferer
	log       *zap.Logger
}

// New valida a configuração e cria o mercado aberto
func New(cfg Config) (*Market, error) {
	if err := cfg.Odds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Deposit == nil || cfg.Deposit.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", ErrInvalidConfiguration)
	}
	if cfg.Transfers == nil {
		return nil, fmt.Errorf("%w: transferer required", ErrInvalidConfiguration)
	}
	if cfg.PayoutBatchSize < 0 {
		return nil, fmt.Errorf("%w: negative payout batch size", ErrInvalidConfiguration)
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	odds := cfg.Odds.clone()
	return &Market{
		addr:      cfg.Address,
		dealer:    cfg.Dealer,
		admin:     cfg.Admin,
		odds:      odds,
		ledger:    NewLiabilityLedger(odds),
		book:      NewParticipantBook(),
		status:    StatusOpen,
		deposit:   new(big.Int).Set(cfg.Deposit),
		paidOut:   new(big.Int),
		batch:     cfg.PayoutBatchSize,
		transfers: cfg.Transfers,
		log:       log.With(zap.String("market", cfg.Address.Hex())),
	}, nil
}

// PlaceBet admite a aposta de sender. Verificações, na ordem: mercado aberto,
// valor mínimo, resultado válido, participante novo, solvência (I1).
func (m *Market) PlaceBet(sender common.Address, outcome Outcome, amount *big.Int) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkWager(sender, outcome, amount); err != nil {
		return nil, err
	}
	if err := m.ledger.Admit(outcome, amount, m.deposit); err != nil {
		return nil, err
	}
	// Has() acima garante que Record não falha
	_ = m.book.Record(sender, Position{Amount: amount, Outcome: outcome})

	r := &Receipt{}
	r.emit(&events.WagerPlaced{
		Market:      m.addr.Hex(),
		Participant: sender.Hex(),
		Outcome:     uint8(outcome),
		Amount:      amount.String(),
		TotalStaked: m.ledger.total.String(),
	})
	return r, nil
}

// CheckWager roda as mesmas verificações do PlaceBet, na mesma ordem, sem
// alterar nada. Serve para recusar antes de mexer em fundos externos; o
// PlaceBet seguinte ainda pode falhar se outra aposta entrar no meio.
func (m *Market) CheckWager(sender common.Address, outcome Outcome, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkWager(sender, outcome, amount); err != nil {
		return err
	}
	return m.ledger.CanAdmit(outcome, amount, m.deposit)
}

func (m *Market) checkWager(sender common.Address, outcome Outcome, amount *big.Int) error {
	if m.status != StatusOpen {
		return ErrMarketClosed
	}
	if amount == nil || amount.Cmp(m.odds.MinimumStake) < 0 {
		return ErrStakeTooSmall
	}
	if !m.odds.ValidOutcome(outcome) {
		return fmt.Errorf("%w: %d", ErrInvalidOutcome, outcome)
	}
	if m.book.Has(sender) {
		return ErrAlreadyWagered
	}
	return nil
}

// CheckRecharge é a pré-validação do RechargeDeposit
func (m *Market) CheckRecharge(amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkRecharge(amount)
}

func (m *Market) checkRecharge(amount *big.Int) error {
	if m.status != StatusOpen {
		return ErrMarketClosed
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// RechargeDeposit aumenta o colateral. Qualquer um pode recarregar.
func (m *Market) RechargeDeposit(sender common.Address, amount *big.Int) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRecharge(amount); err != nil {
		return nil, err
	}
	m.deposit.Add(m.deposit, amount)

	r := &Receipt{}
	r.emit(&events.DepositRecharged{
		Market:  m.addr.Hex(),
		From:    sender.Hex(),
		Amount:  amount.String(),
		Deposit: m.deposit.String(),
	})
	return r, nil
}

func (m *Market) Address() common.Address { return m.addr }
func (m *Market) Dealer() common.Address  { return m.dealer }
func (m *Market) Admin() common.Address   { return m.admin }

// Odds retorna uma cópia da configuração
func (m *Market) Odds() OddsTable { return m.odds.clone() }

func (m *Market) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Deposit é o colateral do dealer. Depois dos pagamentos vale
// deposit - max(0, paidOut - totalStaked).
func (m *Market) Deposit() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depositLocked()
}

func (m *Market) depositLocked() *big.Int {
	beyond := new(big.Int).Sub(m.paidOut, m.ledger.total)
	if beyond.Sign() <= 0 {
		return new(big.Int).Set(m.deposit)
	}
	return beyond.Sub(m.deposit, beyond)
}

func (m *Market) TotalStaked() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.TotalStaked()
}

func (m *Market) StakedOn(o Outcome) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.StakedOn(o)
}

// Balance são os fundos ainda em poder do mercado: deposit + stakes - pagos
func (m *Market) Balance() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked()
}

func (m *Market) balanceLocked() *big.Int {
	b := new(big.Int).Add(m.deposit, m.ledger.total)
	return b.Sub(b, m.paidOut)
}

func (m *Market) PaidOut() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.paidOut)
}

// WinningOutcome é OutcomeNone enquanto o mercado estiver aberto
func (m *Market) WinningOutcome() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

func (m *Market) FinalScore() Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalScore
}

func (m *Market) Roster() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Roster()
}

// PlayerInfo retorna valor e resultado apostados pelo participante
func (m *Market) PlayerInfo(addr common.Address) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Position(addr)
}

func (m *Market) FailedPayouts() []FailedPayout {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FailedPayout, len(m.failed))
	for i, f := range m.failed {
		out[i] = FailedPayout{Participant: f.Participant, Amount: new(big.Int).Set(f.Amount), Reason: f.Reason}
	}
	return out
}

// Snapshot é a leitura consistente de todos os acessores
type Snapshot struct {
	Address         common.Address
	Dealer          common.Address
	Admin           common.Address
	Odds            OddsTable
	Status          Status
	Deposit         *big.Int
	TotalStaked     *big.Int
	StakedByOutcome map[Outcome]*big.Int
	Balance         *big.Int
	PaidOut         *big.Int
	FinalScore      Score
	WinningOutcome  Outcome
	Players         int
	Settled         int // entradas do roster já liquidadas
	FailedPayouts   int
}

func (m *Market) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	staked := make(map[Outcome]*big.Int, 3)
	for _, o := range m.odds.Outcomes() {
		staked[o] = m.ledger.StakedOn(o)
	}
	return Snapshot{
		Address:         m.addr,
		Dealer:          m.dealer,
		Admin:           m.admin,
		Odds:            m.odds.clone(),
		Status:          m.status,
		Deposit:         m.depositLocked(),
		TotalStaked:     m.ledger.TotalStaked(),
		StakedByOutcome: staked,
		Balance:         m.balanceLocked(),
		PaidOut:         new(big.Int).Set(m.paidOut),
		FinalScore:      m.finalScore,
		WinningOutcome:  m.winner,
		Players:         m.book.Len(),
		Settled:         m.cursor,
		FailedPayouts:   len(m.failed),
	}
}
