package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	gateway "github.com/bingozwb/bet-center/internal/api-gateway"
	"github.com/bingozwb/bet-center/internal/shared/config"
	"github.com/bingozwb/bet-center/internal/shared/logger"
	"github.com/bingozwb/bet-center/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("api-gateway", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.NewRouter(log, gateway.Targets{
		BetCenter: cfg.BetCenterURL,
		Wallet:    cfg.WalletURL,
		History:   cfg.HistoryURL,
	})
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.All())
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(sctx)
		_ = srv.Shutdown(sctx)
	}()

	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("bet_center", cfg.BetCenterURL),
		zap.String("wallet", cfg.WalletURL),
		zap.String("history", cfg.HistoryURL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
