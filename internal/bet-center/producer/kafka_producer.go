package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica as notificações dos mercados no tópico bet_events.
// Chave = endereço do mercado, para manter a ordem por mercado.
type KafkaPublisher struct {
	Writer MessageWriter
	Topic  string
	Now    func() time.Time
}

func NewKafkaPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic, Now: time.Now}
}

// Publish envia os eventos, em ordem, numa única escrita
func (p *KafkaPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	now := p.Now()
	msgs := make([]kafka.Message, 0, len(evs))
	for _, e := range evs {
		env, err := events.Wrap(e, now)
		if err != nil {
			return err
		}
		b, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(env.Market), Value: b, Time: now})
	}
	if err := p.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events: %w", len(msgs), err)
	}
	return nil
}
