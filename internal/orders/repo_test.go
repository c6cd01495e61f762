package orders_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/clock"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStoreWorkflow(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	store := orders.NewPGStore(pool, 5*time.Second, logger)
	svc := orders.NewService(store, clock.NewFixed(now), orders.StockAllowOversell).WithLogger(logger)

	setup := func(t *testing.T) (personID, productID int64) {
		testutil.TruncateAll(t, ctx, pool)
		personID = testutil.InsertPerson(t, ctx, pool, "Maria")
		productID = testutil.InsertProduct(t, ctx, pool, "Caderno", 100, decimal.RequireFromString("2.50"))
		return
	}

	t.Run("create then cancel nets stock to zero", func(t *testing.T) {
		personID, productID := setup(t)

		id, err := svc.Create(ctx, orders.CreateInput{
			PersonID:      personID,
			Items:         []orders.LineItem{{ProductID: productID, Quantity: 5, UnitPrice: decimal.RequireFromString("2.50")}},
			PaymentMethod: "credit",
			Installments:  1,
		})
		require.NoError(t, err)
		assert.Equal(t, 95, testutil.ProductStock(t, ctx, pool, productID))

		v, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, v.Total.Equal(decimal.RequireFromString("12.50")), "total %s", v.Total)
		assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), v.DueDate.UTC())
		require.Len(t, v.History, 1)
		assert.Equal(t, orders.StatusOpen, v.History[0].Status)

		require.NoError(t, svc.TransitionStatus(ctx, id, orders.StatusCancelled))
		assert.Equal(t, 100, testutil.ProductStock(t, ctx, pool, productID))

		v, err = svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCancelled, v.Status)
		assert.Len(t, v.History, 2)
	})

	t.Run("unknown person rolls back", func(t *testing.T) {
		_, productID := setup(t)

		_, err := svc.Create(ctx, orders.CreateInput{
			PersonID:      9999,
			Items:         []orders.LineItem{{ProductID: productID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
			PaymentMethod: "pix",
			Installments:  1,
		})
		require.ErrorIs(t, err, orders.ErrPersonNotFound)
		assert.Equal(t, 100, testutil.ProductStock(t, ctx, pool, productID))
		assert.Zero(t, testutil.CountRows(t, ctx, pool, `SELECT COUNT(*) FROM orders`))
	})

	t.Run("reject policy refuses oversell", func(t *testing.T) {
		personID, productID := setup(t)
		strict := orders.NewService(store, clock.NewFixed(now), orders.StockRejectShort).WithLogger(logger)

		_, err := strict.Create(ctx, orders.CreateInput{
			PersonID:      personID,
			Items:         []orders.LineItem{{ProductID: productID, Quantity: 101, UnitPrice: decimal.NewFromInt(1)}},
			PaymentMethod: "pix",
			Installments:  1,
		})
		require.ErrorIs(t, err, orders.ErrInsufficientStock)
		assert.Zero(t, testutil.CountRows(t, ctx, pool, `SELECT COUNT(*) FROM order_history`))
	})

	t.Run("amend and delete", func(t *testing.T) {
		personID, productID := setup(t)

		id, err := svc.Create(ctx, orders.CreateInput{
			PersonID:      personID,
			Items:         []orders.LineItem{{ProductID: productID, Quantity: 5, UnitPrice: decimal.NewFromInt(3)}},
			PaymentMethod: "credit",
			Installments:  1,
		})
		require.NoError(t, err)

		qty := 2
		method := "boleto"
		require.NoError(t, svc.Amend(ctx, id, orders.Amendment{Quantity: &qty, PaymentMethod: &method}))
		assert.Equal(t, 98, testutil.ProductStock(t, ctx, pool, productID))

		v, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, v.Quantity)
		assert.Equal(t, "boleto", v.PaymentMethod)

		require.NoError(t, svc.Delete(ctx, id))
		assert.Zero(t, testutil.CountRows(t, ctx, pool, `SELECT COUNT(*) FROM order_history WHERE order_id = $1`, id))
		_, err = svc.Get(ctx, id)
		require.ErrorIs(t, err, orders.ErrOrderNotFound)

		require.ErrorIs(t, svc.Delete(ctx, id), orders.ErrOrderNotFound)
	})

	t.Run("products", func(t *testing.T) {
		_, productID := setup(t)
		repo := &orders.ProductRepo{DB: pool}

		list, err := repo.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].SalePrice.Equal(decimal.RequireFromString("2.50")))

		p, err := repo.GetProduct(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 100, p.Stock)

		_, err = repo.GetProduct(ctx, productID+1)
		require.ErrorIs(t, err, orders.ErrProductNotFound)
	})

	t.Run("create product and restock", func(t *testing.T) {
		personID, _ := setup(t)
		repo := &orders.ProductRepo{DB: pool}

		p, err := repo.CreateProduct(ctx, orders.NewProduct{Name: " Borracha ", Stock: 2, SalePrice: decimal.RequireFromString("0.75")})
		require.NoError(t, err)
		assert.Equal(t, "Borracha", p.Name)
		assert.Equal(t, 2, testutil.ProductStock(t, ctx, pool, p.ID))

		_, err = svc.Create(ctx, orders.CreateInput{
			PersonID:      personID,
			Items:         []orders.LineItem{{ProductID: p.ID, Quantity: 5, UnitPrice: p.SalePrice}},
			PaymentMethod: "pix",
			Installments:  1,
		})
		require.NoError(t, err)
		assert.Equal(t, -3, testutil.ProductStock(t, ctx, pool, p.ID))

		p, err = repo.SetStock(ctx, p.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, 30, p.Stock)
		assert.Equal(t, 30, testutil.ProductStock(t, ctx, pool, p.ID))

		var ve *orders.ValidationError
		_, err = repo.SetStock(ctx, p.ID, -1)
		require.ErrorAs(t, err, &ve)
		_, err = repo.CreateProduct(ctx, orders.NewProduct{Name: "x", SalePrice: decimal.RequireFromString("1.001")})
		require.ErrorAs(t, err, &ve)
		_, err = repo.SetStock(ctx, p.ID+100, 1)
		require.ErrorIs(t, err, orders.ErrProductNotFound)
	})
}
