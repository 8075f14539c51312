package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PaymentTypeOffline and PaymentTypeOnline classify payment methods.
const (
	PaymentTypeOffline = "Offline"
	PaymentTypeOnline  = "Online"
)

// PaymentType derives the payment channel for a payment method name.
// Cash on Delivery is the only offline method.
func PaymentType(name string) string {
	if name == "Cash on Delivery" {
		return PaymentTypeOffline
	}
	return PaymentTypeOnline
}

// loadDimPaymentMethod rebuilds the payment method dimension from the
// distinct values observed in production at build time. Surrogate keys
// are assigned by the sequence at insert.
func loadDimPaymentMethod(ctx context.Context, tx pgx.Tx) (int, error) {
	rows, err := tx.Query(ctx, `
        SELECT DISTINCT payment_method
        FROM production.transactions
        WHERE payment_method IS NOT NULL
        ORDER BY payment_method`)
	if err != nil {
		return 0, fmt.Errorf("failed to read payment methods: %w", err)
	}

	var methods []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			rows.Close()
			return 0, err
		}
		methods = append(methods, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE warehouse.dim_payment_method RESTART IDENTITY"); err != nil {
		return 0, fmt.Errorf("failed to truncate dim_payment_method: %w", err)
	}

	inserts := make([][]any, len(methods))
	for i, m := range methods {
		inserts[i] = []any{m, PaymentType(m)}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"warehouse", "dim_payment_method"},
		[]string{"payment_method_name", "payment_type"},
		pgx.CopyFromRows(inserts)); err != nil {
		return 0, fmt.Errorf("failed to insert dim_payment_method: %w", err)
	}

	return len(methods), nil
}
