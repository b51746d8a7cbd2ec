package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/bet-projector/repository"
	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// Reader é o subconjunto do *kafka.Reader usado (commit manual)
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Store interface {
	Apply(ctx context.Context, rec repository.Record) (bool, error)
}

type LatestCache interface {
	SetLatest(ctx context.Context, env events.Envelope) error
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// DLQ recebe mensagens que não puderam ser decodificadas ou projetadas
type DLQ interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome bet_events, projeta no Postgres, atualiza o cache e
// repassa o envelope ao canal de broadcast. Commit só depois de tratar a mensagem.
type Processor struct {
	Log         *zap.Logger
	Reader      Reader
	Store       Store
	Cache       LatestCache // opcional
	Broadcaster Broadcaster // opcional
	Channel     string
	DLQ         DLQ // opcional; sem DLQ a mensagem ruim é só descartada

	MaxAttempts int           // tentativas no Store; padrão 3
	Backoff     time.Duration // espera base entre tentativas (Store e reprocessamento); padrão 200ms

	OnConsumed  func()       // métricas (counter++)
	OnPersisted func()       // métricas
	OnDuplicate func()       // métricas
	OnDLQ       func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run roda até o ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.fail("fetch")
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.handleUntilDone(ctx, m); err != nil {
			return err
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.fail("commit")
		}
	}
}

// handleUntilDone insiste na mesma mensagem até tratá-la. O commit é por
// offset da partição: buscar a próxima e commitá-la também commitaria esta.
// Só retorna erro com o ctx cancelado.
func (p *Processor) handleUntilDone(ctx context.Context, m kafka.Message) error {
	backoff := p.backoff()
	for attempt := 1; ; attempt++ {
		err := p.handle(ctx, m)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.Log.Error("message not handled, retrying",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		wait := time.Duration(attempt) * backoff
		if wait > 30*time.Second {
			wait = 30 * time.Second
		}
		sleep(ctx, wait)
	}
}

// handle devolve erro só quando a mensagem não deve ser commitada
func (p *Processor) handle(ctx context.Context, m kafka.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.fail("decode")
		return p.deadLetter(ctx, m, "decode", err)
	}
	ev, err := env.Decode()
	if err != nil {
		p.fail("decode")
		return p.deadLetter(ctx, m, "decode", err)
	}

	rec := repository.Record{Partition: m.Partition, Offset: m.Offset, Envelope: env, Event: ev}
	applied, err := p.apply(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.fail("db")
		return p.deadLetter(ctx, m, "db", err)
	}
	if !applied {
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		p.Log.Debug("duplicate delivery", zap.String("market", env.Market), zap.Int64("offset", m.Offset))
		return nil
	}
	if p.OnPersisted != nil {
		p.OnPersisted()
	}

	// cache e broadcast não bloqueiam o commit
	if p.Cache != nil {
		if err := p.Cache.SetLatest(ctx, env); err != nil {
			p.Log.Warn("redis set failed", zap.String("market", env.Market), zap.Error(err))
			p.fail("cache")
		}
	}
	if p.Broadcaster != nil {
		bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		err := p.Broadcaster.Publish(bctx, p.Channel, m.Value)
		cancel()
		if err != nil {
			p.Log.Warn("ws broadcast publish failed", zap.String("market", env.Market), zap.Error(err))
			p.fail("broadcast")
		}
	}
	return nil
}

func (p *Processor) apply(ctx context.Context, rec repository.Record) (bool, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := p.backoff()

	var err error
	for i := 1; i <= attempts; i++ {
		var applied bool
		if applied, err = p.Store.Apply(ctx, rec); err == nil {
			return applied, nil
		}
		p.Log.Warn("db apply failed",
			zap.String("type", rec.Envelope.Type),
			zap.Int("attempt", i),
			zap.Error(err),
		)
		if i < attempts {
			sleep(ctx, time.Duration(i)*backoff)
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	return false, err
}

// deadLetter copia a mensagem para a DLQ com o motivo nos headers.
// Erro aqui impede o commit.
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) error {
	p.Log.Warn("dead-lettering message",
		zap.String("stage", stage),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.Error(cause),
	)
	if p.DLQ == nil {
		return nil
	}
	dead := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header{}, m.Headers...),
			kafka.Header{Key: "dlq-stage", Value: []byte(stage)},
			kafka.Header{Key: "dlq-error", Value: []byte(cause.Error())},
			kafka.Header{Key: "dlq-origin", Value: []byte(fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset))},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, dead); err != nil {
		p.fail("dlq")
		return fmt.Errorf("write dlq: %w", err)
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
	return nil
}

func (p *Processor) backoff() time.Duration {
	if p.Backoff <= 0 {
		return 200 * time.Millisecond
	}
	return p.Backoff
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
