package events

// WagerPlaced é emitido quando uma aposta é admitida
type WagerPlaced struct {
	Market      string `json:"market"`
	Participant string `json:"participant"`
	Outcome     uint8  `json:"outcome"`
	Amount      string `json:"amount"`
	TotalStaked string `json:"total_staked"`
}

func (e *WagerPlaced) EventType() string  { return TypeWagerPlaced }
func (e *WagerPlaced) MarketAddr() string { return e.Market }

// Payout é emitido uma vez por vencedor pago
type Payout struct {
	Market      string `json:"market"`
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
}

func (e *Payout) EventType() string  { return TypePayout }
func (e *Payout) MarketAddr() string { return e.Market }

// PayoutFailed registra um pagamento que o ledger recusou
type PayoutFailed struct {
	Market      string `json:"market"`
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason"`
}

func (e *PayoutFailed) EventType() string  { return TypePayoutFailed }
func (e *PayoutFailed) MarketAddr() string { return e.Market }
