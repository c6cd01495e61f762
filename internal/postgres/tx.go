package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rollbackTimeout = 2 * time.Second

// Beginner is the slice of *pgxpool.Pool the runner needs.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var _ Beginner = (*pgxpool.Pool)(nil)

// TxRunner executes a function inside one transaction on one pooled
// connection. The connection goes back to the pool on commit, on rollback,
// and when fn panics.
type TxRunner struct {
	DB      Beginner
	Timeout time.Duration
	Logger  *slog.Logger
}

func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.rollback(ctx, tx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		r.rollback(ctx, tx, err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		r.rollback(ctx, tx, err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rollback runs on a fresh deadline so an expired operation context still
// gets its transaction closed. Failures are logged, never returned.
func (r *TxRunner) rollback(ctx context.Context, tx pgx.Tx, cause error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := tx.Rollback(rctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger().Error("rollback failed", "error", err, "cause", cause)
	}
}

func (r *TxRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ConstraintName reports the violated constraint, or "" for non-pg errors.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
