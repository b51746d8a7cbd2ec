package ws

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal de broadcast e repassa cada envelope ao Hub.
// A goroutine termina com o ctx.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, valid := decodeEnvelope([]byte(msg.Payload))
				if !valid {
					log.Warn("ws subscriber: invalid envelope", zap.String("channel", channel))
					continue
				}
				hub.Broadcast(env)
			}
		}
	}()
}
