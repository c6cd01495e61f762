package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Service runs the order lifecycle. Each mutating call is one transaction
// covering the order row, its history and product stock; events go out
// only after commit.
type Service struct {
	store    Store
	stock    StockLedger
	history  HistoryRecorder
	clock    clock.Clock
	events   Publisher
	producer string
	log      *slog.Logger
}

func NewService(store Store, clk clock.Clock, policy StockPolicy) *Service {
	return &Service{
		store:   store,
		stock:   StockLedger{Policy: policy},
		history: HistoryRecorder{Clock: clk},
		clock:   clk,
		log:     slog.Default(),
	}
}

// WithEvents publishes lifecycle envelopes stamped with producer.
func (s *Service) WithEvents(p Publisher, producer string) *Service {
	s.events = p
	s.producer = producer
	return s
}

func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.log = l
	}
	return s
}

// Create persists a new order and returns its id. The first line item
// becomes the order's product and quantity; the subtotal covers all items.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	status := in.Status
	if status.Blank() {
		status = StatusOpen
	}

	subtotal := Subtotal(in.Items)
	first := in.Items[0]
	o := Order{
		ProductID:     first.ProductID,
		PersonID:      in.PersonID,
		Quantity:      first.Quantity,
		Subtotal:      subtotal,
		PaymentMethod: in.PaymentMethod,
		Installments:  in.Installments,
		DueDate:       DueDate(s.clock.Now()),
		Total:         subtotal,
		Status:        status,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		id, err := tx.InsertOrder(ctx, o)
		if err != nil {
			return err
		}
		o.ID = id
		if err := s.history.Append(ctx, tx, id, status); err != nil {
			return err
		}
		// an order born cancelled holds no stock
		if status.IsCancelled() {
			return nil
		}
		return s.stock.Decrement(ctx, tx, o.ProductID, o.Quantity)
	})
	if err != nil {
		return 0, s.fail(ctx, "create order", 0, err)
	}

	s.log.InfoContext(ctx, "order created", "order_id", o.ID, "product_id", o.ProductID, "quantity", o.Quantity, "total", o.Total.String())
	s.emit(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:   o.ID,
		PersonID:  o.PersonID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status,
	})
	return o.ID, nil
}

func (s *Service) Get(ctx context.Context, id int64) (OrderView, error) {
	v, err := s.store.LoadOrder(ctx, id)
	if err != nil {
		return OrderView{}, s.fail(ctx, "get order", id, err)
	}
	return v, nil
}

// TransitionStatus records status and applies stock compensation when the
// order moves into or out of the cancelled state. Reopening a cancelled
// order takes its quantity again, so under StockRejectShort it can fail
// with ErrInsufficientStock and leave the order cancelled.
func (s *Service) TransitionStatus(ctx context.Context, id int64, status Status) error {
	if status.Blank() {
		return invalid("status", "required")
	}

	var ev OrderStatusChangedPayload
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		ev = OrderStatusChangedPayload{OrderID: id, From: o.Status, To: status, ProductID: o.ProductID}
		ev.StockDelta, err = s.applyStatus(ctx, tx, &o, status)
		return err
	})
	if err != nil {
		return s.fail(ctx, "transition status", id, err)
	}

	s.log.InfoContext(ctx, "order status changed", "order_id", id, "from", ev.From, "to", ev.To, "stock_delta", ev.StockDelta)
	s.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, id, ev)
	return nil
}

// Amend updates the given columns and, when a status is supplied, runs the
// same status change as TransitionStatus. Moving a live order to another
// product or quantity moves the held stock with it.
func (s *Service) Amend(ctx context.Context, id int64, a Amendment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	var ev OrderAmendedPayload
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		before := o
		var moves []StockMove

		if a.hasFields() {
			a.apply(&o)
			if !o.Status.IsCancelled() && (o.ProductID != before.ProductID || o.Quantity != before.Quantity) {
				if err := s.stock.Increment(ctx, tx, before.ProductID, before.Quantity); err != nil {
					return err
				}
				if err := s.stock.Decrement(ctx, tx, o.ProductID, o.Quantity); err != nil {
					return err
				}
				moves = append(moves,
					StockMove{ProductID: before.ProductID, Delta: before.Quantity},
					StockMove{ProductID: o.ProductID, Delta: -o.Quantity},
				)
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
		}

		if a.Status != nil {
			delta, err := s.applyStatus(ctx, tx, &o, *a.Status)
			if err != nil {
				return err
			}
			if delta != 0 {
				moves = append(moves, StockMove{ProductID: o.ProductID, Delta: delta})
			}
		}
		ev = OrderAmendedPayload{OrderID: id, Status: o.Status, Moves: moves}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "amend order", id, err)
	}

	s.log.InfoContext(ctx, "order amended", "order_id", id, "status", ev.Status, "stock_moves", len(ev.Moves))
	s.emit(ctx, TopicOrderAmended, EventOrderAmended, id, ev)
	return nil
}

// Delete removes the order and its history. A missing order is reported
// before anything is deleted. Stock is not returned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		n, err := tx.DeleteHistory(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, "delete order", id, err)
	}

	s.log.InfoContext(ctx, "order deleted", "order_id", id, "history_removed", removed)
	s.emit(ctx, TopicOrderDeleted, EventOrderDeleted, id, OrderDeletedPayload{OrderID: id, HistoryRemoved: removed})
	return nil
}

// applyStatus is the single status-change path: history entry, stock
// compensation, then the order's current status.
func (s *Service) applyStatus(ctx context.Context, tx Tx, o *Order, to Status) (int, error) {
	if err := s.history.Append(ctx, tx, o.ID, to); err != nil {
		return 0, err
	}
	delta := compensation(o.Status, to, o.Quantity)
	if err := s.stock.Apply(ctx, tx, o.ProductID, delta); err != nil {
		return 0, err
	}
	if err := tx.SetStatus(ctx, o.ID, to); err != nil {
		return 0, err
	}
	o.Status = to
	return delta, nil
}

func (s *Service) fail(ctx context.Context, op string, id int64, err error) error {
	if isDomain(err) {
		return err
	}
	s.log.ErrorContext(ctx, op+" failed", "order_id", id, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

func (s *Service) emit(ctx context.Context, topic, eventType string, orderID int64, payload any) {
	if s.events == nil {
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.clock.Now().UTC().Truncate(time.Millisecond),
		Producer:      s.producer,
		TraceID:       TraceID(ctx),
		CorrelationID: string(PartitionKey(orderID)),
		Payload:       kafkax.MustMarshal(payload),
	}
	s.events.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type traceKey struct{}

// WithTraceID tags events emitted under ctx with a request id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
