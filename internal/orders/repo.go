package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, product_id, person_id, quantity, subtotal, payment_method, installments, due_date, total, status`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the Postgres-backed Store. Every WithTx call checks out one
// pooled connection and returns it when the transaction ends.
type PGStore struct {
	DB     *pgxpool.Pool
	runner *postgres.TxRunner
}

func NewPGStore(db *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) *PGStore {
	return &PGStore{
		DB:     db,
		runner: &postgres.TxRunner{DB: db, Timeout: timeout, Logger: logger},
	}
}

func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{q: tx})
	})
}

// LoadOrder reads the order and its history from one snapshot.
func (s *PGStore) LoadOrder(ctx context.Context, id int64) (OrderView, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return OrderView{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := selectOrder(ctx, tx, id, false)
	if err != nil {
		return OrderView{}, err
	}
	h, err := selectHistory(ctx, tx, id)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, History: h}, nil
}

func selectOrder(ctx context.Context, q querier, id int64, forUpdate bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var o Order
	var status string
	err := q.QueryRow(ctx, sql, id).Scan(
		&o.ID, &o.ProductID, &o.PersonID, &o.Quantity, &o.Subtotal,
		&o.PaymentMethod, &o.Installments, &o.DueDate, &o.Total, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("select order: %w", err)
	}
	o.Status = Status(status)
	return o, nil
}

func selectHistory(ctx context.Context, q querier, orderID int64) ([]HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, recorded_at, status
		FROM order_history
		WHERE order_id = $1
		ORDER BY recorded_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var status string
		if err := rows.Scan(&e.ID, &e.OrderID, &e.RecordedAt, &status); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

type pgTx struct{ q querier }

func (t *pgTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO orders (product_id, person_id, quantity, subtotal, payment_method, installments, due_date, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		o.ProductID, o.PersonID, o.Quantity, o.Subtotal, o.PaymentMethod,
		o.Installments, o.DueDate, o.Total, string(o.Status),
	).Scan(&id)
	if err != nil {
		return 0, referenceError("insert order", err)
	}
	return id, nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	return selectOrder(ctx, t.q, id, true)
}

func (t *pgTx) UpdateOrder(ctx context.Context, o Order) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE orders
		SET product_id = $2, person_id = $3, quantity = $4, subtotal = $5,
		    payment_method = $6, installments = $7, due_date = $8, total = $9
		WHERE id = $1`,
		o.ID, o.ProductID, o.PersonID, o.Quantity, o.Subtotal,
		o.PaymentMethod, o.Installments, o.DueDate, o.Total,
	)
	if err != nil {
		return referenceError("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.q.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) InsertHistory(ctx context.Context, e HistoryEntry) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO order_history (order_id, recorded_at, status) VALUES ($1, $2, $3)`,
		e.OrderID, e.RecordedAt, string(e.Status),
	)
	if err != nil {
		return referenceError("insert history", err)
	}
	return nil
}

func (t *pgTx) DeleteHistory(ctx context.Context, orderID int64) (int64, error) {
	tag, err := t.q.Exec(ctx, `DELETE FROM order_history WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) AdjustStock(ctx context.Context, productID int64, delta int) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
		productID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (t *pgTx) TakeStock(ctx context.Context, productID int64, qty int) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return fmt.Errorf("take stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// referenceError turns foreign key violations into the matching not-found error.
func referenceError(op string, err error) error {
	if postgres.IsForeignKeyViolation(err) {
		name := postgres.ConstraintName(err)
		switch {
		case strings.Contains(name, "person"):
			return ErrPersonNotFound
		case strings.Contains(name, "product"):
			return ErrProductNotFound
		case strings.Contains(name, "order"):
			return ErrOrderNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ProductRepo reads products and sets their stock outside of orders.
type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, stock, sale_price FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.SalePrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, stock, sale_price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Stock, &p.SalePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) CreateProduct(ctx context.Context, in NewProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	var p Product
	err := r.DB.QueryRow(ctx,
		`INSERT INTO products (name, stock, sale_price) VALUES ($1, $2, $3)
		 RETURNING id, name, stock, sale_price`,
		strings.TrimSpace(in.Name), in.Stock, in.SalePrice,
	).Scan(&p.ID, &p.Name, &p.Stock, &p.SalePrice)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// SetStock replaces the stock count, as a restock or inventory count does.
func (r *ProductRepo) SetStock(ctx context.Context, id int64, stock int) (Product, error) {
	if err := ValidateStock(stock); err != nil {
		return Product{}, err
	}
	var p Product
	err := r.DB.QueryRow(ctx,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1
		 RETURNING id, name, stock, sale_price`,
		id, stock,
	).Scan(&p.ID, &p.Name, &p.Stock, &p.SalePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("set stock: %w", err)
	}
	return p, nil
}
