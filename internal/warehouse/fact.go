package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Unresolved-reason codes for fact rows dropped during surrogate key
// resolution.
const (
	ReasonMissingCustomerKey = "missing_customer_key"
	ReasonMissingProductKey  = "missing_product_key"
	ReasonMissingPaymentKey  = "missing_payment_method_key"
)

// SourceLine is one transaction item joined with its transaction and
// product, the input to fact assembly.
type SourceLine struct {
	TransactionID      string
	ProductID          string
	CustomerID         *string
	PaymentMethod      *string
	TransactionDate    time.Time
	Quantity           int32
	UnitPrice          float64
	DiscountPercentage float64
	LineTotal          float64
	Cost               float64
}

// FactRow is one assembled fact_sales row.
type FactRow struct {
	DateKey          int
	CustomerKey      int32
	ProductKey       int32
	PaymentMethodKey int32
	TransactionID    string
	Quantity         int32
	UnitPrice        float64
	DiscountAmount   float64
	LineTotal        float64
	Profit           float64
}

// DeriveMeasures computes the financial measures for a source line.
func DeriveMeasures(line SourceLine) (discountAmount, profit float64) {
	discountAmount = line.UnitPrice * float64(line.Quantity) * line.DiscountPercentage / 100
	profit = line.LineTotal - line.Cost*float64(line.Quantity)
	return discountAmount, profit
}

// AssembleFacts resolves surrogate keys for each source line and derives
// its measures. Lines whose business key is absent from a current
// dimension are not assembled; they are counted per missing dimension so
// the run summary can report them. The fact table is fully rebuilt each
// run, so dropped lines are reconsidered after the next dimension build.
func AssembleFacts(lines []SourceLine, customerKeys, productKeys, paymentKeys map[string]int32) ([]FactRow, map[string]int) {
	facts := make([]FactRow, 0, len(lines))
	unresolved := make(map[string]int)

	for _, line := range lines {
		var customerKey, productKey, paymentKey int32
		var ok bool

		if line.CustomerID == nil {
			unresolved[ReasonMissingCustomerKey]++
			continue
		}
		if customerKey, ok = customerKeys[*line.CustomerID]; !ok {
			unresolved[ReasonMissingCustomerKey]++
			continue
		}
		if productKey, ok = productKeys[line.ProductID]; !ok {
			unresolved[ReasonMissingProductKey]++
			continue
		}
		if line.PaymentMethod == nil {
			unresolved[ReasonMissingPaymentKey]++
			continue
		}
		if paymentKey, ok = paymentKeys[*line.PaymentMethod]; !ok {
			unresolved[ReasonMissingPaymentKey]++
			continue
		}

		discountAmount, profit := DeriveMeasures(line)
		facts = append(facts, FactRow{
			DateKey:          DateKey(line.TransactionDate),
			CustomerKey:      customerKey,
			ProductKey:       productKey,
			PaymentMethodKey: paymentKey,
			TransactionID:    line.TransactionID,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			DiscountAmount:   discountAmount,
			LineTotal:        line.LineTotal,
			Profit:           profit,
		})
	}
	return facts, unresolved
}

// readSourceLines joins transaction_items with transactions and products.
// Inner joins: items referencing a missing transaction or product do not
// produce a line.
func readSourceLines(ctx context.Context, tx pgx.Tx) ([]SourceLine, error) {
	sql, args, err := builder().
		Select("ti.transaction_id", "ti.product_id", "t.customer_id",
			"t.payment_method", "t.transaction_date", "ti.quantity",
			"ti.unit_price", "ti.discount_percentage", "ti.line_total", "p.cost").
		From("production.transaction_items ti").
		Join("production.transactions t ON ti.transaction_id = t.transaction_id").
		Join("production.products p ON ti.product_id = p.product_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read fact source rows: %w", err)
	}
	defer rows.Close()

	var lines []SourceLine
	for rows.Next() {
		var l SourceLine
		if err := rows.Scan(&l.TransactionID, &l.ProductID, &l.CustomerID,
			&l.PaymentMethod, &l.TransactionDate, &l.Quantity, &l.UnitPrice,
			&l.DiscountPercentage, &l.LineTotal, &l.Cost); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// readDimKeys loads business key to surrogate key for the current
// versions of a dimension.
func readDimKeys(ctx context.Context, tx pgx.Tx, table, surrogateCol, businessCol string, currentOnly bool) (map[string]int32, error) {
	q := builder().Select(surrogateCol, businessCol).From(table)
	if currentOnly {
		q = q.Where(squirrel.Eq{"is_current": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", table, err)
	}
	defer rows.Close()

	keys := make(map[string]int32)
	for rows.Next() {
		var surrogate int32
		var business string
		if err := rows.Scan(&surrogate, &business); err != nil {
			return nil, err
		}
		keys[business] = surrogate
	}
	return keys, rows.Err()
}

// loadFactSales rebuilds warehouse.fact_sales from the production join,
// returning (source count, fact count, unresolved counts).
func loadFactSales(ctx context.Context, tx pgx.Tx) (int, int, map[string]int, error) {
	lines, err := readSourceLines(ctx, tx)
	if err != nil {
		return 0, 0, nil, err
	}

	customerKeys, err := readDimKeys(ctx, tx, "warehouse.dim_customers", "customer_key", "customer_id", true)
	if err != nil {
		return 0, 0, nil, err
	}
	productKeys, err := readDimKeys(ctx, tx, "warehouse.dim_products", "product_key", "product_id", true)
	if err != nil {
		return 0, 0, nil, err
	}
	paymentKeys, err := readDimKeys(ctx, tx, "warehouse.dim_payment_method", "payment_method_key", "payment_method_name", false)
	if err != nil {
		return 0, 0, nil, err
	}

	facts, unresolved := AssembleFacts(lines, customerKeys, productKeys, paymentKeys)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE warehouse.fact_sales RESTART IDENTITY"); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to truncate fact_sales: %w", err)
	}

	rows := make([][]any, len(facts))
	for i, f := range facts {
		rows[i] = []any{f.DateKey, f.CustomerKey, f.ProductKey, f.PaymentMethodKey,
			f.TransactionID, f.Quantity, f.UnitPrice, f.DiscountAmount,
			f.LineTotal, f.Profit}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"warehouse", "fact_sales"},
		[]string{"date_key", "customer_key", "product_key", "payment_method_key",
			"transaction_id", "quantity", "unit_price", "discount_amount",
			"line_total", "profit"},
		pgx.CopyFromRows(rows)); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to insert fact_sales: %w", err)
	}

	return len(lines), len(facts), unresolved, nil
}
