package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "ORDER_TX_TIMEOUT", "STOCK_POLICY", "KAFKA_BROKERS", "LOG_LEVEL", "LOW_STOCK_THRESHOLD"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.OrderTxTimeout)
	assert.Equal(t, "allow", cfg.StockPolicy)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.LowStockThreshold)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORDER_TX_TIMEOUT", "750ms")
	t.Setenv("STOCK_POLICY", "REJECT")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")
	t.Setenv("INVENTORY_WORKERS", "nope")

	cfg := Load()
	assert.Equal(t, 750*time.Millisecond, cfg.OrderTxTimeout)
	assert.Equal(t, "reject", cfg.StockPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 12, cfg.LowStockThreshold)
	assert.Equal(t, 8, cfg.InventoryWorkers)
}

func TestLoadIgnoresInvalidTimeout(t *testing.T) {
	t.Setenv("ORDER_TX_TIMEOUT", "-3s")
	assert.Equal(t, 5*time.Second, Load().OrderTxTimeout)
}
