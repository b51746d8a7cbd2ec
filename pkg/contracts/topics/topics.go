package topics

const (
	// Notificações dos mercados (todas as operações, chave = endereço do mercado)
	BetEvents = "bet_events"

	// DLQs
	BetEventsDLQ = "bet_events_dlq"
)

// Canal Redis usado para o feed WebSocket
const BetEventsBroadcast = "bet_events_broadcast"
