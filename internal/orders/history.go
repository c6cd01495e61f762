package orders

import (
	"context"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
)

// HistoryRecorder appends status entries; it never edits existing ones.
type HistoryRecorder struct {
	Clock clock.Clock
}

func (h HistoryRecorder) Append(ctx context.Context, tx Tx, orderID int64, status Status) error {
	return tx.InsertHistory(ctx, HistoryEntry{
		OrderID:    orderID,
		RecordedAt: h.Clock.Now(),
		Status:     status,
	})
}
