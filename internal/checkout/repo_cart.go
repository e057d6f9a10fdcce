package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CartRepo reads the cart subsystem's tables. The checkout core never
// mutates cart contents except for the clear inside the checkout
// transaction.
type CartRepo struct{ DB *pgxpool.Pool }

func (r *CartRepo) Get(ctx context.Context, userID string) (*Cart, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, unit_cents, qty
		FROM cart_items WHERE user_id = $1
		ORDER BY product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart := &Cart{UserID: userID}
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitCents, &it.Qty); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, it)
	}
	return cart, rows.Err()
}

// clearCartTx empties the cart but keeps the cart row, so the next add
// starts from an empty cart rather than a missing one.
func clearCartTx(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE user_id = $1`, userID)
	return err
}

type AddressRepo struct{ DB *pgxpool.Pool }

// Resolve returns nil when the address does not exist or belongs to a
// different user; the service maps that to ErrInvalidAddress.
func (r *AddressRepo) Resolve(ctx context.Context, userID, addressID string) (*Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, line1, city, country, is_primary
		FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.Country, &a.Primary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
