package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// RedisCache guarda o último envelope de cada mercado
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// Key é a chave do último evento de um mercado (endereço em minúsculas)
func Key(market string) string { return "bet:latest:" + strings.ToLower(market) }

func (r *RedisCache) SetLatest(ctx context.Context, env events.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, Key(env.Market), b, r.TTL).Err()
}

// Latest devolve (envelope, true) se houver valor em cache
func (r *RedisCache) Latest(ctx context.Context, market string) (events.Envelope, bool, error) {
	b, err := r.Client.Get(ctx, Key(market)).Bytes()
	if err == redis.Nil {
		return events.Envelope{}, false, nil
	}
	if err != nil {
		return events.Envelope{}, false, err
	}
	var env events.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return events.Envelope{}, false, err
	}
	return env, true, nil
}
