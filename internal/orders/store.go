package orders

import "context"

// Store opens order transactions and serves reads outside of them.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	LoadOrder(ctx context.Context, id int64) (OrderView, error)
}

// Tx is the statement set of one order transaction. Every call runs on the
// same connection and commits or rolls back together.
type Tx interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	LockOrder(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	SetStatus(ctx context.Context, id int64, status Status) error
	InsertHistory(ctx context.Context, e HistoryEntry) error
	DeleteHistory(ctx context.Context, orderID int64) (int64, error)
	DeleteOrder(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, productID int64, delta int) error
	TakeStock(ctx context.Context, productID int64, qty int) error
}
