package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx OrderStore. Every multi-step operation runs in a single
// transaction with the commit last, so callers never observe a half-applied
// checkout or transition.
type Repo struct {
	DB     *pgxpool.Pool
	Ledger *StockLedger
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{DB: db, Ledger: &StockLedger{DB: db}}
}

func (r *Repo) CreateOrder(ctx context.Context, draft *Order, intent IntentFunc) (string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1) reserve stock for every line; all shortages reported at once
	shortages, err := r.Ledger.reserveAll(ctx, tx, draft.Items)
	if err != nil {
		return "", err
	}
	if len(shortages) > 0 {
		return "", &InsufficientStockError{Shortages: shortages}
	}

	// 2) per-day atomic sequence for the order number
	day := DayKey(draft.CreatedAt)
	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO order_counters(day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq`, day).Scan(&seq)
	if err != nil {
		return "", err
	}
	draft.OrderNumber = FormatOrderNumber(day, seq)

	// 3) order + items + history
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, address_id, payment_method,
		                   subtotal_cents, total_cents, order_status, payment_status,
		                   stock_restored, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		draft.ID, draft.OrderNumber, draft.UserID, draft.AddressID, draft.PaymentMethod,
		draft.SubtotalCents, draft.TotalCents, draft.OrderStatus, draft.PaymentStatus,
		draft.StockRestored, draft.CreatedAt)
	if err != nil {
		return "", err
	}
	for _, it := range draft.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, unit_cents, qty)
			VALUES ($1,$2,$3,$4,$5)`,
			draft.ID, it.ProductID, it.Name, it.UnitCents, it.Qty); err != nil {
			return "", err
		}
	}
	if err := insertHistory(ctx, tx, draft.ID, draft.History); err != nil {
		return "", err
	}

	// 4) cart converts into the order
	if err := clearCartTx(ctx, tx, draft.UserID); err != nil {
		return "", err
	}

	// 5) card intent last: the least reversible step. Failure here rolls
	// back the reservation and the cart clear with everything else.
	var clientSecret string
	if intent != nil {
		ref, secret, err := intent(ctx, draft)
		if err != nil {
			return "", err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET payment_ref = $2 WHERE id = $1`,
			draft.ID, ref); err != nil {
			return "", err
		}
		draft.PaymentRef = ref
		clientSecret = secret
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return clientSecret, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return r.loadOrder(ctx, r.DB, "id", orderID, false)
}

func (r *Repo) GetOrderByRef(ctx context.Context, paymentRef string) (*Order, error) {
	return r.loadOrder(ctx, r.DB, "payment_ref", paymentRef, false)
}

func (r *Repo) UpdateOrder(ctx context.Context, orderID, eventID string, mutate MutateFunc) (*Order, bool, error) {
	return r.update(ctx, "id", orderID, eventID, mutate)
}

func (r *Repo) UpdateOrderByRef(ctx context.Context, paymentRef, eventID string, mutate MutateFunc) (*Order, bool, error) {
	return r.update(ctx, "payment_ref", paymentRef, eventID, mutate)
}

func (r *Repo) update(ctx context.Context, col, key, eventID string, mutate MutateFunc) (*Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Dedup ledger first. ON CONFLICT DO NOTHING doubles as the mutual
	// exclusion for two copies of the same event racing on different
	// workers: only one insert wins.
	if eventID != "" {
		ct, err := tx.Exec(ctx, `
			INSERT INTO webhook_events(external_event_id) VALUES ($1)
			ON CONFLICT (external_event_id) DO NOTHING`, eventID)
		if err != nil {
			return nil, false, err
		}
		if ct.RowsAffected() == 0 {
			o, err := r.loadOrder(ctx, tx, col, key, false)
			if err != nil {
				return nil, false, err
			}
			return o, false, nil
		}
	}

	o, err := r.loadOrder(ctx, tx, col, key, true)
	if err != nil {
		return nil, false, err
	}
	historyBefore := len(o.History)

	fx, err := mutate(o)
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET order_status = $2, payment_status = $3,
		       stock_restored = $4, updated_at = $5
		WHERE id = $1`,
		o.ID, o.OrderStatus, o.PaymentStatus, o.StockRestored, o.UpdatedAt); err != nil {
		return nil, false, err
	}
	if err := insertHistory(ctx, tx, o.ID, o.History[historyBefore:]); err != nil {
		return nil, false, err
	}
	if fx.RestoreStock {
		if err := r.Ledger.restoreAll(ctx, tx, o.Items); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) loadOrder(ctx context.Context, q querier, col, key string, lock bool) (*Order, error) {
	if col != "id" && col != "payment_ref" {
		return nil, fmt.Errorf("loadOrder: bad column %q", col)
	}
	sql := `
		SELECT id, order_number, user_id, address_id, payment_method,
		       subtotal_cents, total_cents, order_status, payment_status,
		       COALESCE(payment_ref, ''), stock_restored, created_at, updated_at
		FROM orders WHERE ` + col + ` = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var o Order
	err := q.QueryRow(ctx, sql, key).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.AddressID, &o.PaymentMethod,
		&o.SubtotalCents, &o.TotalCents, &o.OrderStatus, &o.PaymentStatus,
		&o.PaymentRef, &o.StockRestored, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT product_id, name, unit_cents, qty
		FROM order_items WHERE order_id = $1 ORDER BY product_id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitCents, &it.Qty); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := q.Query(ctx, `
		SELECT status, note, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var e StatusEntry
		if err := hrows.Scan(&e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		o.History = append(o.History, e)
	}
	return &o, hrows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID string, entries []StatusEntry) error {
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_history(order_id, status, note, created_at)
			VALUES ($1,$2,$3,$4)`, orderID, e.Status, e.Note, e.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
