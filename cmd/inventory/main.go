package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-inventory"
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", name)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer: product.stock.low
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(context.Background())

	svc := &inventory.Service{
		Products:    &orders.ProductRepo{DB: db},
		Dedup:       &redisx.Dedup{RDB: rdb, Service: "inventory"},
		Events:      prod,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: name,
		Clock:       clock.NewSystem(),
		Log:         logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, inventory.Topics, cfg.InventoryWorkers, logger)
	logger.Info("inventory consumer started", "group", cfg.InventoryGroup, "topics", inventory.Topics,
		"workers", cfg.InventoryWorkers, "threshold", cfg.LowStockThreshold)

	// Start returns once ctx is cancelled and the workers have finished.
	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
		logger.Error("consumer exit", "error", err)
	}

	logger.Info("shutting down consumer")
	prod.Close()
	prod.WaitClosed()
}
