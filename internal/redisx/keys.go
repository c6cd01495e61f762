package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cached order view: order_view:{order_id} -> OrderView JSON
	KeyOrderView = "order_view:%d"

	// Cache generation per order, bumped by every invalidation: order_gen:{order_id}
	KeyOrderGen = "order_gen:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLOrderView   = 5 * time.Minute
	TTLOrderGen    = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
