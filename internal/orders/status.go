package orders

import "strings"

// Status is a free-form label. Only the cancelled label carries a stock effect.
type Status string

const (
	StatusOpen      Status = "Aberto"
	StatusCancelled Status = "Cancelado"
)

func (s Status) IsCancelled() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(StatusCancelled))
}

func (s Status) Blank() bool { return strings.TrimSpace(string(s)) == "" }

// compensation is the stock movement implied by moving an order from one
// status to another: positive returns units to stock, negative takes them.
func compensation(from, to Status, qty int) int {
	switch {
	case to.IsCancelled() && !from.IsCancelled():
		return qty
	case from.IsCancelled() && !to.IsCancelled():
		return -qty
	default:
		return 0
	}
}
