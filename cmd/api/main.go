package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/ariefcatur/go-inventory-orders/migrations"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, err := orders.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		fatal(logger, "config", err)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		fatal(logger, "db connect", err)
	}
	defer db.Close()
	if err := migrations.Apply(ctx, db); err != nil {
		fatal(logger, "migrate", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	// Workflow & handlers
	store := orders.NewPGStore(db, cfg.OrderTxTimeout, logger)
	svc := orders.NewService(store, clock.NewSystem(), policy).
		WithEvents(prod, cfg.ServiceName).
		WithLogger(logger)

	router := httpx.NewRouter(cfg.CORSOrigins)
	(&httpx.OrdersHandler{Orders: svc, Cache: redisx.NewOrderCache(rdb), Log: logger}).Register(router)
	(&httpx.ProductsHandler{Products: &orders.ProductRepo{DB: db}}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "stock_policy", string(policy), "tx_timeout", cfg.OrderTxTimeout)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "listen", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	prod.Close()      // stop accepting, flush & close writer
	prod.WaitClosed() // drain
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
