package orders

import (
	"context"
	"fmt"
	"strings"
)

// StockPolicy decides whether a decrement may drive stock below zero.
type StockPolicy string

const (
	StockAllowOversell StockPolicy = "allow"
	StockRejectShort   StockPolicy = "reject"
)

func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", StockAllowOversell:
		return StockAllowOversell, nil
	case StockRejectShort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// StockLedger moves product stock inside the caller's transaction.
type StockLedger struct {
	Policy StockPolicy
}

func (l StockLedger) Decrement(ctx context.Context, tx Tx, productID int64, qty int) error {
	if l.Policy == StockRejectShort {
		return tx.TakeStock(ctx, productID, qty)
	}
	return tx.AdjustStock(ctx, productID, -qty)
}

func (l StockLedger) Increment(ctx context.Context, tx Tx, productID int64, qty int) error {
	return tx.AdjustStock(ctx, productID, qty)
}

// Apply moves delta units: positive increments, negative decrements.
func (l StockLedger) Apply(ctx context.Context, tx Tx, productID int64, delta int) error {
	switch {
	case delta > 0:
		return l.Increment(ctx, tx, productID, delta)
	case delta < 0:
		return l.Decrement(ctx, tx, productID, -delta)
	}
	return nil
}
