package orders

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type NewProduct struct {
	Name      string
	Stock     int
	SalePrice decimal.Decimal
}

func (p NewProduct) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "required")
	}
	if err := ValidateStock(p.Stock); err != nil {
		return err
	}
	return checkMoney("sale_price", p.SalePrice)
}

// ValidateStock accepts a stock level a product may be set to.
func ValidateStock(n int) error {
	if n < 0 {
		return invalid("stock", "must not be negative")
	}
	if n > math.MaxInt32 {
		return invalid("stock", "too large")
	}
	return nil
}
