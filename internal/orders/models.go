package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

// Order is one sale. ProductID and Quantity come from the first line item
// of the request that created it.
type Order struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	PersonID      int64           `json:"person_id"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	PaymentMethod string          `json:"payment_method"`
	Installments  int             `json:"installments"`
	DueDate       time.Time       `json:"due_date"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
}

type HistoryEntry struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Status     Status    `json:"status"`
}

// OrderView is an order together with its history, oldest entry first.
type OrderView struct {
	Order
	History []HistoryEntry `json:"history"`
}

type LineItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal sums quantity*unit price over every item.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

const dueAfterDays = 7

// DueDate is the calendar day one week after now.
func DueDate(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, dueAfterDays).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
