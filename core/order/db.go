package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders
		(order_id, external_order_id, user_id, amount, currency, receipt, notes, status, created_at, updated_at)
	VALUES
		(:order_id, :external_order_id, :user_id, :amount, :currency, :receipt, :notes, :status, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func FetchByExternalID(ctx context.Context, db sqlx.ExtContext, externalID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE external_order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s]: %w", externalID, err)
	}

	return ord, nil
}

// FetchOwned loads an order only when it belongs to userID, so one user
// cannot confirm a payment against another user's order.
func FetchOwned(ctx context.Context, db sqlx.ExtContext, externalID string, userID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE external_order_id = $1 AND user_id = $2`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, externalID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s] of user[%s]: %w", externalID, userID, err)
	}

	return ord, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `
	UPDATE orders SET
		status = :status,
		updated_at = :updated_at
	WHERE external_order_id = :external_order_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, up)
	if err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", up.ExternalID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
