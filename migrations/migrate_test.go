package migrations_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-inventory-orders/internal/testutil"
	"github.com/ariefcatur/go-inventory-orders/migrations"
	"github.com/stretchr/testify/require"
)

func TestApplyIsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	require.NoError(t, migrations.Apply(ctx, pool))

	var first int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&first))
	require.GreaterOrEqual(t, first, 1)

	require.NoError(t, migrations.Apply(ctx, pool))

	var second int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&second))
	require.Equal(t, first, second)

	var seeded bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = '0002_seed_people.sql')`).Scan(&seeded))
	require.True(t, seeded, "people seed not applied")

	for _, table := range []string{"people", "products", "orders", "order_history"} {
		var exists bool
		require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists))
		require.Truef(t, exists, "table %s missing", table)
	}
}
