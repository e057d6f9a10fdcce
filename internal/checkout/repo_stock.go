package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockLedger owns the stock column on products. Reservation is one
// conditional UPDATE, never read-then-write, so concurrent callers cannot
// oversell.
type StockLedger struct{ DB *pgxpool.Pool }

// Reserve decrements available stock by qty if enough is left. Returns
// InsufficientStockError carrying the shortage otherwise.
func (l *StockLedger) Reserve(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		avail, err := l.available(ctx, l.DB, productID)
		if err != nil {
			return err
		}
		return &InsufficientStockError{Shortages: []StockShortage{
			{ProductID: productID, Required: qty, Available: avail},
		}}
	}
	return nil
}

// Restore puts qty back. Idempotency is the caller's job: the order's
// stock_restored flag guarantees at most one restore per order.
func (l *StockLedger) Restore(ctx context.Context, productID string, qty int) error {
	_, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	return err
}

// reserveAll applies every line inside tx. If any line is short nothing is
// kept (the enclosing transaction rolls back); all shortages are collected
// so the caller can report the full list.
func (l *StockLedger) reserveAll(ctx context.Context, tx pgx.Tx, items []OrderItem) ([]StockShortage, error) {
	var shortages []StockShortage
	for _, it := range items {
		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			avail, err := l.available(ctx, tx, it.ProductID)
			if err != nil {
				return nil, err
			}
			shortages = append(shortages, StockShortage{
				ProductID: it.ProductID, Required: it.Qty, Available: avail,
			})
		}
	}
	return shortages, nil
}

func (l *StockLedger) restoreAll(ctx context.Context, tx pgx.Tx, items []OrderItem) error {
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now()
			WHERE id = $1`, it.ProductID, it.Qty); err != nil {
			return err
		}
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (l *StockLedger) available(ctx context.Context, q rowQuerier, productID string) (int, error) {
	var stock int
	err := q.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil // unknown product: report zero available
	}
	return stock, err
}
