package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// client serializa as escritas: gorilla não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub mantém as conexões e as assinaturas por mercado
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // mercado (minúsculo) -> conexões
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP faz o upgrade e atende subscribe/unsubscribe/ping até o cliente sair
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		key := strings.ToLower(msg.Market)
		switch msg.Type {
		case "subscribe":
			if key == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[key]; !ok {
				h.subs[key] = make(map[*client]struct{})
			}
			h.subs[key][c] = struct{}{}
			h.mu.Unlock()
			_ = c.write(map[string]string{"type": "subscribed", "market": msg.Market})
		case "unsubscribe":
			h.remove(key, c)
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for key, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
}

// Broadcast envia o envelope a quem assina o mercado e a quem assina "*"
func (h *Hub) Broadcast(env events.Envelope) {
	h.mu.RLock()
	targets := make(map[*client]struct{})
	for c := range h.subs[strings.ToLower(env.Market)] {
		targets[c] = struct{}{}
	}
	for c := range h.subs[AllMarkets] {
		targets[c] = struct{}{}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	for c := range targets {
		if err := c.write(env); err != nil {
			h.log.Debug("ws write failed", zap.String("market", env.Market), zap.Error(err))
		}
	}
}

// Subscribers conta conexões assinando o mercado (sem o coringa)
func (h *Hub) Subscribers(market string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.ToLower(market)])
}

// decodeEnvelope aceita apenas envelopes com tipo e mercado
func decodeEnvelope(b []byte) (events.Envelope, bool) {
	var env events.Envelope
	if err := json.Unmarshal(b, &env); err != nil || env.Type == "" || env.Market == "" {
		return events.Envelope{}, false
	}
	return env, true
}
