package config_test

import (
	"testing"
	"time"

	"github.com/bingozwb/bet-center/internal/shared/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "bet-center")

	cfg := config.Load()
	if cfg.HTTPPort != "8083" || cfg.MetricsPort != "9099" {
		t.Errorf("ports = %s/%s", cfg.HTTPPort, cfg.MetricsPort)
	}
	if cfg.TopicBetEvents != "bet_events" || cfg.TopicBetEventsDLQ != "bet_events_dlq" {
		t.Errorf("topics = %s/%s", cfg.TopicBetEvents, cfg.TopicBetEventsDLQ)
	}
	if cfg.PayoutBatchSize != 0 {
		t.Errorf("batch = %d", cfg.PayoutBatchSize)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("ttl = %s", cfg.CacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(config.Config) bool
	}{
		{"batch size", map[string]string{"PAYOUT_BATCH_SIZE": "50"}, func(c config.Config) bool { return c.PayoutBatchSize == 50 }},
		{"bad batch size falls back", map[string]string{"PAYOUT_BATCH_SIZE": "many"}, func(c config.Config) bool { return c.PayoutBatchSize == 0 }},
		{"cache ttl", map[string]string{"CACHE_TTL": "30s"}, func(c config.Config) bool { return c.CacheTTL == 30*time.Second }},
		{"admin", map[string]string{"ADMIN_ADDRESS": "0xabc"}, func(c config.Config) bool { return c.AdminAddress == "0xabc" }},
		{"wallet ports", map[string]string{"SERVICE_NAME": "wallet-service", "HTTP_PORT_WALLET": "9000"}, func(c config.Config) bool {
			return c.HTTPPort == "9000" && c.MetricsPort == "9098"
		}},
		{"projector serves history", map[string]string{"SERVICE_NAME": "bet-projector"}, func(c config.Config) bool {
			return c.HTTPPort == "8084" && c.MetricsPort == "9097"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if cfg := config.Load(); !tt.check(cfg) {
				t.Errorf("unexpected config: %+v", cfg)
			}
		})
	}
}
