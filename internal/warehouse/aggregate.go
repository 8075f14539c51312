package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rebuildDailySales recomputes warehouse.agg_daily_sales from fact_sales.
// Pure aggregation over date_key; returns the number of aggregate rows.
func rebuildDailySales(ctx context.Context, tx pgx.Tx) (int, error) {
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE warehouse.agg_daily_sales"); err != nil {
		return 0, fmt.Errorf("failed to truncate agg_daily_sales: %w", err)
	}

	tag, err := tx.Exec(ctx, `
        INSERT INTO warehouse.agg_daily_sales
            (date_key, total_transactions, total_revenue, total_profit, unique_customers)
        SELECT
            date_key,
            COUNT(DISTINCT transaction_id),
            SUM(line_total),
            SUM(profit),
            COUNT(DISTINCT customer_key)
        FROM warehouse.fact_sales
        GROUP BY date_key`)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild agg_daily_sales: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
