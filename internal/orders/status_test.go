package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsCancelled(t *testing.T) {
	assert.True(t, StatusCancelled.IsCancelled())
	assert.True(t, Status("cancelado").IsCancelled())
	assert.True(t, Status(" CANCELADO\t").IsCancelled())
	assert.False(t, StatusOpen.IsCancelled())
	assert.False(t, Status("cancelados").IsCancelled())
}

func TestCompensation(t *testing.T) {
	assert.Equal(t, 5, compensation(StatusOpen, StatusCancelled, 5))
	assert.Equal(t, -5, compensation("cancelado", "Pago", 5))
	assert.Zero(t, compensation(StatusCancelled, "CANCELADO", 5))
	assert.Zero(t, compensation(StatusOpen, "Pago", 5))
}

func TestParseStockPolicy(t *testing.T) {
	p, err := ParseStockPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StockAllowOversell, p)

	p, err = ParseStockPolicy(" Reject ")
	require.NoError(t, err)
	assert.Equal(t, StockRejectShort, p)

	_, err = ParseStockPolicy("floor")
	require.Error(t, err)
}

func TestDueDate(t *testing.T) {
	now := time.Date(2026, 12, 28, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 4, 0, 0, 0, 0, time.UTC), DueDate(now))
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid quantity: must be positive", invalid("quantity", "must be positive").Error())
	assert.Equal(t, "invalid input: no fields to update", invalid("", "no fields to update").Error())
}
