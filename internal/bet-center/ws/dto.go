package ws

// ClientMsg é o que o cliente envia pelo WebSocket.
// Market "*" assina todos os mercados.
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	Market string `json:"market"` // endereço hex; requerido em subscribe/unsubscribe
}

// AllMarkets é a assinatura coringa
const AllMarkets = "*"
