package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tipos de evento publicados no tópico "bet_events"
const (
	TypeMarketCreated       = "MarketCreated"
	TypeWagerPlaced         = "WagerPlaced"
	TypeDepositRecharged    = "DepositRecharged"
	TypeMarketClosed        = "MarketClosed"
	TypePayout              = "Payout"
	TypePayoutFailed        = "PayoutFailed"
	TypeSettlementCompleted = "SettlementCompleted"
)

// Event é implementado por toda notificação emitida por um mercado
type Event interface {
	EventType() string
	MarketAddr() string
}

// Envelope é o formato de fio: tipo + mercado + payload bruto
type Envelope struct {
	Type     string          `json:"type"`
	Market   string          `json:"market"`
	TsUnixMs int64           `json:"ts_unix_ms"`
	Payload  json.RawMessage `json:"payload"`
}

// Wrap serializa o evento dentro de um Envelope carimbado com ts
func Wrap(e Event, ts time.Time) (Envelope, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return Envelope{
		Type:     e.EventType(),
		Market:   e.MarketAddr(),
		TsUnixMs: ts.UnixMilli(),
		Payload:  b,
	}, nil
}

// Decode devolve o evento concreto contido no envelope
func (env Envelope) Decode() (Event, error) {
	var e Event
	switch env.Type {
	case TypeMarketCreated:
		e = &MarketCreated{}
	case TypeWagerPlaced:
		e = &WagerPlaced{}
	case TypeDepositRecharged:
		e = &DepositRecharged{}
	case TypeMarketClosed:
		e = &MarketClosed{}
	case TypePayout:
		e = &Payout{}
	case TypePayoutFailed:
		e = &PayoutFailed{}
	case TypeSettlementCompleted:
		e = &SettlementCompleted{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return e, nil
}
