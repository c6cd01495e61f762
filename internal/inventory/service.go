package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Topics the watcher subscribes to.
var Topics = []string{
	orders.TopicOrderCreated,
	orders.TopicOrderStatusChanged,
	orders.TopicOrderAmended,
}

// StockReader is satisfied by *orders.ProductRepo.
type StockReader interface {
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
}

// Deduper is satisfied by *redisx.Dedup.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Service watches order events and raises product.stock.low whenever an
// order took stock from a product that is now at or below Threshold.
type Service struct {
	Products    StockReader
	Dedup       Deduper
	Events      orders.Publisher
	Threshold   int
	ServiceName string
	Clock       clock.Clock
	Log         *slog.Logger
}

// HandleOrderEvent is installed as the consumer handler.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// 2) which products lost stock
	taken, err := takenProducts(env)
	if err != nil {
		return err
	}
	if len(taken) == 0 {
		return nil
	}

	// 3) dedup via Redis (event_id)
	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	// 4) check current stock
	orderID, _ := strconv.ParseInt(env.CorrelationID, 10, 64)
	for _, productID := range taken {
		p, err := s.Products.GetProduct(ctx, productID)
		if errors.Is(err, orders.ErrProductNotFound) {
			continue
		}
		if err != nil {
			// released so the consumer retry checks this event again
			_ = s.Dedup.Release(context.WithoutCancel(ctx), env.EventID)
			return err
		}
		if p.Stock > s.Threshold {
			continue
		}
		s.logger().WarnContext(ctx, "product stock low", "product_id", p.ID, "stock", p.Stock, "threshold", s.Threshold, "order_id", orderID)
		s.publishLow(p, orderID, env.TraceID)
	}
	return nil
}

// takenProducts lists the products an event decremented.
func takenProducts(env orders.Envelope) ([]int64, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		if p.Status.IsCancelled() {
			return nil, nil
		}
		return []int64{p.ProductID}, nil

	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		if p.StockDelta >= 0 {
			return nil, nil
		}
		return []int64{p.ProductID}, nil

	case orders.EventOrderAmended:
		p, err := kafkax.UnwrapPayload[orders.OrderAmendedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		var out []int64
		for _, mv := range p.Moves {
			if mv.Delta < 0 {
				out = append(out, mv.ProductID)
			}
		}
		return out, nil
	}
	return nil, nil // ignore
}

func (s *Service) publishLow(p orders.Product, orderID int64, trace string) {
	key := orders.PartitionKey(p.ID)
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: string(key),
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID: p.ID, Stock: p.Stock, Threshold: s.Threshold, OrderID: orderID,
		}),
	}
	s.Events.Publish(orders.TopicStockLow, key, kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
