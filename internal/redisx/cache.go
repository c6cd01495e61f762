package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// OrderCache fronts order reads and remembers which order an
// Idempotency-Key produced. Postgres stays the source of truth; a miss or
// a Redis error is never fatal to the caller.
//
// A view read from Postgres is only cached when the order's generation is
// still the one observed before the read, so a slow reader cannot put back
// a view that a concurrent write has already invalidated.
type OrderCache struct {
	RDB redis.UniversalClient
}

var errStaleView = errors.New("order view is stale")

func NewOrderCache(rdb redis.UniversalClient) *OrderCache { return &OrderCache{RDB: rdb} }

// GetView returns the cached view and whether it was present.
func (c *OrderCache) GetView(ctx context.Context, id int64) (orders.OrderView, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderView, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.OrderView{}, false, nil
	}
	if err != nil {
		return orders.OrderView{}, false, err
	}
	var v orders.OrderView
	if err := json.Unmarshal(b, &v); err != nil {
		return orders.OrderView{}, false, err
	}
	return v, true, nil
}

// Generation must be read before loading the view that is passed to SetView.
func (c *OrderCache) Generation(ctx context.Context, id int64) (int64, error) {
	n, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderGen, id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetView caches v unless the order was invalidated after gen was read.
// A skipped write is not an error.
func (c *OrderCache) SetView(ctx context.Context, v orders.OrderView, gen int64) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	genKey := fmt.Sprintf(KeyOrderGen, v.ID)
	err = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, fmt.Sprintf(KeyOrderView, v.ID), b, TTLOrderView)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleView) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached view and bumps the generation.
func (c *OrderCache) Invalidate(ctx context.Context, id int64) error {
	genKey := fmt.Sprintf(KeyOrderGen, id)
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, TTLOrderGen)
		p.Del(ctx, fmt.Sprintf(KeyOrderView, id))
		return nil
	})
	return err
}

// LookupIdempotent returns the order id stored for key, or 0.
func (c *OrderCache) LookupIdempotent(ctx context.Context, key string) (int64, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// RememberIdempotent keeps the first id stored under key.
func (c *OrderCache) RememberIdempotent(ctx context.Context, key string, orderID int64) error {
	return c.RDB.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// Dedup marks event ids a consumer has already handled.
type Dedup struct {
	RDB     redis.Cmdable
	Service string
}

// Seen claims id and reports whether it had been claimed before.
func (d *Dedup) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Release drops a claim so a failed event can be retried.
func (d *Dedup) Release(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
