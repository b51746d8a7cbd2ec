package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/bingozwb/bet-center/internal/bet-center/http"
	"github.com/bingozwb/bet-center/internal/bet-center/producer"
	"github.com/bingozwb/bet-center/internal/bet-center/registry"
	"github.com/bingozwb/bet-center/internal/bet-center/wallet"
	"github.com/bingozwb/bet-center/internal/bet-center/ws"
	projcache "github.com/bingozwb/bet-center/internal/bet-projector/cache"
	"github.com/bingozwb/bet-center/internal/shared/cache"
	"github.com/bingozwb/bet-center/internal/shared/config"
	"github.com/bingozwb/bet-center/internal/shared/kafka"
	"github.com/bingozwb/bet-center/internal/shared/logger"
	"github.com/bingozwb/bet-center/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-center"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if !common.IsHexAddress(cfg.CenterAddress) || !common.IsHexAddress(cfg.AdminAddress) {
		log.Fatal("CENTER_ADDRESS and ADMIN_ADDRESS must be hex addresses",
			zap.String("center", cfg.CenterAddress), zap.String("admin", cfg.AdminAddress))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis: feed do WebSocket e leitura do último evento projetado
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer do tópico bet_events
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEvents)
	defer writer.Close()
	publ := producer.NewKafkaPublisher(writer, cfg.TopicBetEvents)

	wcli := wallet.New(cfg.WalletURL)

	// Métricas Prometheus
	created := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_center_markets_created_total", Help: "mercados criados"}, []string{"category"})
	wagers := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_center_wagers_total", Help: "apostas por resultado (accepted ou motivo da rejeição)"}, []string{"result"})
	deposits := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_center_deposit_recharges_total", Help: "recargas de colateral"})
	payouts := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_center_payouts_total", Help: "pagamentos efetuados"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_center_payouts_failed_total", Help: "pagamentos recusados pela wallet"})
	prometheus.MustRegister(created, wagers, deposits, payouts, failed)

	reg := registry.New(registry.Options{
		Address:         common.HexToAddress(cfg.CenterAddress),
		Admin:           common.HexToAddress(cfg.AdminAddress),
		Transfers:       wcli,
		PayoutBatchSize: cfg.PayoutBatchSize,
		Log:             log,
	})

	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := httpapi.NewServer(log, reg, wcli, publ, httpapi.Hooks{
		OnMarketCreated: func(category string) { created.WithLabelValues(category).Inc() },
		OnWager:         func(result string) { wagers.WithLabelValues(result).Inc() },
		OnDeposit:       func() { deposits.Inc() },
		OnSettlement: func(paid, nfailed int) {
			payouts.Add(float64(paid))
			failed.Add(float64(nfailed))
		},
	})
	api.WS = hub
	api.Latest = projcache.NewRedisCache(rdb, cfg.CacheTTL)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.All(
		func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		func(ctx context.Context) error { return kafka.Ping(ctx, cfg.KafkaBrokers) },
	))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bet-center listening",
			zap.String("addr", apiSrv.Addr),
			zap.String("center", cfg.CenterAddress),
			zap.Int("payout_batch_size", cfg.PayoutBatchSize),
		)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(sctx)
		return apiSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("bet-center stopped with error", zap.Error(err))
		return
	}
	log.Info("bet-center stopped")
}
