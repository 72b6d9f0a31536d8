package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("payment not found")

// CreateIfAbsent inserts pay unless a row with its external id already
// exists. The conflict clause, not an application-level existence
// check, decides the winner when two deliveries race: exactly one sees
// created=true.
func CreateIfAbsent(ctx context.Context, db sqlx.ExtContext, pay Payment) (created bool, err error) {
	const q = `
	INSERT INTO payments
		(payment_id, external_payment_id, order_id, user_id, amount, currency, status, method, email, contact, created_at, updated_at)
	VALUES
		(:payment_id, :external_payment_id, :order_id, :user_id, :amount, :currency, :status, :method, :email, :contact, :created_at, :updated_at)
	ON CONFLICT (external_payment_id) DO NOTHING`

	res, err := sqlx.NamedExecContext(ctx, db, q, pay)
	if err != nil {
		return false, fmt.Errorf("inserting payment[%s]: %w", pay.ExternalID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected by payment insert: %w", err)
	}

	return n == 1, nil
}

func FetchByExternalID(ctx context.Context, db sqlx.ExtContext, externalID string) (Payment, error) {
	const q = `SELECT * FROM payments WHERE external_payment_id = $1`

	var pay Payment
	if err := sqlx.GetContext(ctx, db, &pay, q, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("selecting payment[%s]: %w", externalID, err)
	}

	return pay, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, externalID string, status Status) error {
	const q = `
	UPDATE payments SET
		status = $2,
		updated_at = $3
	WHERE external_payment_id = $1`

	res, err := db.ExecContext(ctx, q, externalID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating status of payment[%s]: %w", externalID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
