package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/bet-projector/cache"
	"github.com/bingozwb/bet-center/internal/bet-projector/consumer"
	httpapi "github.com/bingozwb/bet-center/internal/bet-projector/http"
	"github.com/bingozwb/bet-center/internal/bet-projector/pubsub"
	"github.com/bingozwb/bet-center/internal/bet-projector/repository"
	sharedcache "github.com/bingozwb/bet-center/internal/shared/cache"
	"github.com/bingozwb/bet-center/internal/shared/config"
	"github.com/bingozwb/bet-center/internal/shared/db"
	"github.com/bingozwb/bet-center/internal/shared/kafka"
	"github.com/bingozwb/bet-center/internal/shared/logger"
	"github.com/bingozwb/bet-center/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-projector"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg, repository.Schema...); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// consumer group bet-projector, commit manual após projetar
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetEvents, "bet-projector")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEventsDLQ)
	defer dlq.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_proj_messages_consumed_total", Help: "mensagens consumidas"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_proj_db_writes_total", Help: "eventos projetados no banco"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_proj_duplicates_total", Help: "reentregas ignoradas"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_proj_dlq_total", Help: "mensagens enviadas à DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, duplicates, dead, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Store:       repository.NewPostgresRepo(pg),
		Cache:       cache.NewRedisCache(redisClient, cfg.CacheTTL),
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		DLQ:         dlq,
		OnConsumed:  func() { consumed.Inc() },
		OnPersisted: func() { persisted.Inc() },
		OnDuplicate: func() { duplicates.Inc() },
		OnDLQ:       func() { dead.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.All(
		func(ctx context.Context) error { return pg.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	))
	defer metricsSrv.Close()

	// API de histórico sobre o read model
	api := &httpapi.API{Log: log, Repo: repository.NewReadRepo(pg)}
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: api.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("history api failed", zap.Error(err))
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("bet-projector started",
		zap.String("addr", srv.Addr),
		zap.String("topic", cfg.TopicBetEvents),
		zap.String("dlq", cfg.TopicBetEventsDLQ),
		zap.String("channel", cfg.RedisPubSubChannel),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
		return
	}
	log.Info("bet-projector stopped")
}
