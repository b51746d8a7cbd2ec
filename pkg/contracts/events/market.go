package events

// MarketCreated é emitido pelo registro ao criar um mercado.
// Valores monetários trafegam como string decimal (wei).
type MarketCreated struct {
	Market          string    `json:"market"`
	Category        string    `json:"category"`
	ExternalEventID string    `json:"external_event_id"`
	Dealer          string    `json:"dealer"`
	Admin           string    `json:"admin"`
	Deposit         string    `json:"deposit"`
	MinimumStake    string    `json:"minimum_stake"`
	Handicap        int32     `json:"handicap"`
	Odds            [3]uint64 `json:"odds"` // x100: esquerda, meio, direita
	Format          uint8     `json:"format"`
	StartTime       int64     `json:"start_time"`
	Duration        int64     `json:"duration"`
}

func (e *MarketCreated) EventType() string  { return TypeMarketCreated }
func (e *MarketCreated) MarketAddr() string { return e.Market }

// DepositRecharged é emitido a cada recarga do colateral
type DepositRecharged struct {
	Market  string `json:"market"`
	From    string `json:"from"`
	Amount  string `json:"amount"`
	Deposit string `json:"deposit"` // colateral após a recarga
}

func (e *DepositRecharged) EventType() string  { return TypeDepositRecharged }
func (e *DepositRecharged) MarketAddr() string { return e.Market }

// MarketClosed marca o fim das apostas e o placar final informado
type MarketClosed struct {
	Market         string `json:"market"`
	LeftPoints     uint32 `json:"left_points"`
	RightPoints    uint32 `json:"right_points"`
	WinningOutcome uint8  `json:"winning_outcome"`
}

func (e *MarketClosed) EventType() string  { return TypeMarketClosed }
func (e *MarketClosed) MarketAddr() string { return e.Market }

// SettlementCompleted é emitido quando o roster inteiro foi percorrido
type SettlementCompleted struct {
	Market  string `json:"market"`
	Paid    int    `json:"paid"`
	Failed  int    `json:"failed"`
	PaidOut string `json:"paid_out"`
	Balance string `json:"balance"` // saldo restante disponível ao dealer
}

func (e *SettlementCompleted) EventType() string  { return TypeSettlementCompleted }
func (e *SettlementCompleted) MarketAddr() string { return e.Market }
