package orders

import (
	"context"
	"sort"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// memStore is an in-memory Store. A transaction that returns an error has
// all of its writes undone, like a rollback.
type memStore struct {
	mu        sync.Mutex
	orders    map[int64]Order
	history   []HistoryEntry
	stock     map[int64]int
	nextOrder int64
	nextHist  int64

	failOn    map[string]error
	txs       int
	commits   int
	rollbacks int
}

func newMemStore(stock map[int64]int) *memStore {
	if stock == nil {
		stock = map[int64]int{}
	}
	return &memStore{
		orders: map[int64]Order{},
		stock:  stock,
		failOn: map[string]error{},
	}
}

type memSnapshot struct {
	orders    map[int64]Order
	history   []HistoryEntry
	stock     map[int64]int
	nextOrder int64
	nextHist  int64
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		orders:    make(map[int64]Order, len(m.orders)),
		history:   append([]HistoryEntry(nil), m.history...),
		stock:     make(map[int64]int, len(m.stock)),
		nextOrder: m.nextOrder,
		nextHist:  m.nextHist,
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.stock {
		s.stock[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.orders, m.history, m.stock = s.orders, s.history, s.stock
	m.nextOrder, m.nextHist = s.nextOrder, s.nextHist
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++
	snap := m.snapshot()
	if err := fn(ctx, &memTx{m: m}); err != nil {
		m.restore(snap)
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *memStore) LoadOrder(_ context.Context, id int64) (OrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["LoadOrder"]; err != nil {
		return OrderView{}, err
	}
	o, ok := m.orders[id]
	if !ok {
		return OrderView{}, ErrOrderNotFound
	}
	return OrderView{Order: o, History: m.historyOf(id)}, nil
}

func (m *memStore) historyOf(id int64) []HistoryEntry {
	out := []HistoryEntry{}
	for _, e := range m.history {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

func (m *memStore) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id]
}

func (m *memStore) historyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memTx struct{ m *memStore }

func (t *memTx) fail(op string) error { return t.m.failOn[op] }

func (t *memTx) InsertOrder(_ context.Context, o Order) (int64, error) {
	if err := t.fail("InsertOrder"); err != nil {
		return 0, err
	}
	if _, ok := t.m.stock[o.ProductID]; !ok {
		return 0, ErrProductNotFound
	}
	t.m.nextOrder++
	o.ID = t.m.nextOrder
	t.m.orders[o.ID] = o
	return o.ID, nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (Order, error) {
	if err := t.fail("LockOrder"); err != nil {
		return Order{}, err
	}
	o, ok := t.m.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (t *memTx) UpdateOrder(_ context.Context, o Order) error {
	if err := t.fail("UpdateOrder"); err != nil {
		return err
	}
	cur, ok := t.m.orders[o.ID]
	if !ok {
		return ErrOrderNotFound
	}
	if _, ok := t.m.stock[o.ProductID]; !ok {
		return ErrProductNotFound
	}
	o.Status = cur.Status
	t.m.orders[o.ID] = o
	return nil
}

func (t *memTx) SetStatus(_ context.Context, id int64, status Status) error {
	if err := t.fail("SetStatus"); err != nil {
		return err
	}
	o, ok := t.m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	t.m.orders[id] = o
	return nil
}

func (t *memTx) InsertHistory(_ context.Context, e HistoryEntry) error {
	if err := t.fail("InsertHistory"); err != nil {
		return err
	}
	if _, ok := t.m.orders[e.OrderID]; !ok {
		return ErrOrderNotFound
	}
	t.m.nextHist++
	e.ID = t.m.nextHist
	t.m.history = append(t.m.history, e)
	return nil
}

func (t *memTx) DeleteHistory(_ context.Context, orderID int64) (int64, error) {
	if err := t.fail("DeleteHistory"); err != nil {
		return 0, err
	}
	kept := t.m.history[:0:0]
	var n int64
	for _, e := range t.m.history {
		if e.OrderID == orderID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	t.m.history = kept
	return n, nil
}

func (t *memTx) DeleteOrder(_ context.Context, id int64) error {
	if err := t.fail("DeleteOrder"); err != nil {
		return err
	}
	if _, ok := t.m.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(t.m.orders, id)
	return nil
}

func (t *memTx) AdjustStock(_ context.Context, productID int64, delta int) error {
	if err := t.fail("AdjustStock"); err != nil {
		return err
	}
	if _, ok := t.m.stock[productID]; !ok {
		return ErrProductNotFound
	}
	t.m.stock[productID] += delta
	return nil
}

func (t *memTx) TakeStock(_ context.Context, productID int64, qty int) error {
	if err := t.fail("TakeStock"); err != nil {
		return err
	}
	cur, ok := t.m.stock[productID]
	if !ok {
		return ErrProductNotFound
	}
	if cur < qty {
		return ErrInsufficientStock
	}
	t.m.stock[productID] = cur - qty
	return nil
}

type published struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(topic string, key, value []byte, _ ...kafkago.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, key: string(key), value: value})
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.topic)
	}
	return out
}
