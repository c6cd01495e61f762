package orders

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(12,2) and counts are INTEGER.
var maxMoney = decimal.New(1, 10)

func checkMoney(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return invalid(field, "must not be negative")
	case !d.Equal(d.Round(2)):
		return invalid(field, "at most 2 decimal places")
	case d.GreaterThanOrEqual(maxMoney):
		return invalid(field, "must be below 10000000000")
	}
	return nil
}

func checkCount(field string, n int) error {
	if n <= 0 {
		return invalid(field, "must be positive")
	}
	if n > math.MaxInt32 {
		return invalid(field, "too large")
	}
	return nil
}

type CreateInput struct {
	PersonID      int64
	Items         []LineItem
	PaymentMethod string
	Installments  int
	Status        Status // defaults to StatusOpen
}

func (in CreateInput) Validate() error {
	if in.PersonID <= 0 {
		return invalid("person_id", "required")
	}
	if len(in.Items) == 0 {
		return invalid("items", "at least one line item is required")
	}
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID <= 0 {
			return invalid(field+".product_id", "required")
		}
		if err := checkCount(field+".quantity", it.Quantity); err != nil {
			return err
		}
		if err := checkMoney(field+".unit_price", it.UnitPrice); err != nil {
			return err
		}
	}
	if err := checkMoney("subtotal", Subtotal(in.Items)); err != nil {
		return err
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return invalid("payment_method", "required")
	}
	return checkCount("installments", in.Installments)
}

// Amendment lists the order columns a caller may change. Nil fields are
// left alone. A new Subtotal also becomes the Total.
type Amendment struct {
	PersonID      *int64
	ProductID     *int64
	Quantity      *int
	Subtotal      *decimal.Decimal
	PaymentMethod *string
	Installments  *int
	DueDate       *time.Time
	Status        *Status
}

func (a Amendment) Validate() error {
	if !a.hasFields() && a.Status == nil {
		return invalid("", "no fields to update")
	}
	if a.PersonID != nil && *a.PersonID <= 0 {
		return invalid("person_id", "must be positive")
	}
	if a.ProductID != nil && *a.ProductID <= 0 {
		return invalid("product_id", "must be positive")
	}
	if a.Quantity != nil {
		if err := checkCount("quantity", *a.Quantity); err != nil {
			return err
		}
	}
	if a.Subtotal != nil {
		if err := checkMoney("subtotal", *a.Subtotal); err != nil {
			return err
		}
	}
	if a.PaymentMethod != nil && strings.TrimSpace(*a.PaymentMethod) == "" {
		return invalid("payment_method", "must not be empty")
	}
	if a.Installments != nil {
		if err := checkCount("installments", *a.Installments); err != nil {
			return err
		}
	}
	if a.DueDate != nil && a.DueDate.IsZero() {
		return invalid("due_date", "must be set")
	}
	if a.Status != nil && a.Status.Blank() {
		return invalid("status", "must not be empty")
	}
	return nil
}

func (a Amendment) hasFields() bool {
	return a.PersonID != nil || a.ProductID != nil || a.Quantity != nil ||
		a.Subtotal != nil || a.PaymentMethod != nil || a.Installments != nil ||
		a.DueDate != nil
}

func (a Amendment) apply(o *Order) {
	if a.PersonID != nil {
		o.PersonID = *a.PersonID
	}
	if a.ProductID != nil {
		o.ProductID = *a.ProductID
	}
	if a.Quantity != nil {
		o.Quantity = *a.Quantity
	}
	if a.Subtotal != nil {
		o.Subtotal = *a.Subtotal
		o.Total = *a.Subtotal
	}
	if a.PaymentMethod != nil {
		o.PaymentMethod = *a.PaymentMethod
	}
	if a.Installments != nil {
		o.Installments = *a.Installments
	}
	if a.DueDate != nil {
		y, m, d := a.DueDate.Date()
		o.DueDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}
