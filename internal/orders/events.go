package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderAmended       = "OrderAmended"
	EventOrderDeleted       = "OrderDeleted"
	EventStockLow           = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID   int64  `json:"order_id"`
	PersonID  int64  `json:"person_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
	Status    Status `json:"status"`
}

// StockDelta is the stock movement the change applied to ProductID.
type OrderStatusChangedPayload struct {
	OrderID    int64  `json:"order_id"`
	From       Status `json:"from"`
	To         Status `json:"to"`
	ProductID  int64  `json:"product_id"`
	StockDelta int    `json:"stock_delta"`
}

type StockMove struct {
	ProductID int64 `json:"product_id"`
	Delta     int   `json:"delta"`
}

type OrderAmendedPayload struct {
	OrderID int64       `json:"order_id"`
	Status  Status      `json:"status"`
	Moves   []StockMove `json:"moves,omitempty"`
}

type OrderDeletedPayload struct {
	OrderID        int64 `json:"order_id"`
	HistoryRemoved int64 `json:"history_removed"`
}

type StockLowPayload struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
	Threshold int   `json:"threshold"`
	OrderID   int64 `json:"order_id,omitempty"`
}
