package cleanse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
)

// Stage moves the four staging tables into production. Customers and
// products are truncate+reload; transactions and transaction_items are
// append-only by primary key. All writes share one transaction, so a
// failure anywhere rolls back the whole stage.
type Stage struct{}

// NewStage creates the cleansing stage.
func NewStage() *Stage {
	return &Stage{}
}

// Name returns the stage name.
func (s *Stage) Name() string { return "cleanse" }

// Inputs returns the staging tables the stage reads.
func (s *Stage) Inputs() []string {
	return []string{
		"staging.customers",
		"staging.products",
		"staging.transactions",
		"staging.transaction_items",
	}
}

// Outputs returns the production tables the stage writes.
func (s *Stage) Outputs() []string {
	return []string{
		"production.customers",
		"production.products",
		"production.transactions",
		"production.transaction_items",
	}
}

// Run executes the stage.
func (s *Stage) Run(ctx context.Context, pool *pgxpool.Pool) (*pipeline.StageResult, error) {
	result := pipeline.NewStageResult(s.Name())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return result.Finish(err), fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.loadCustomers(ctx, tx, result); err != nil {
		return result.Finish(err), err
	}
	if err := s.loadProducts(ctx, tx, result); err != nil {
		return result.Finish(err), err
	}
	if err := s.loadTransactions(ctx, tx, result); err != nil {
		return result.Finish(err), err
	}
	if err := s.loadItems(ctx, tx, result); err != nil {
		return result.Finish(err), err
	}

	if err := tx.Commit(ctx); err != nil {
		return result.Finish(err), fmt.Errorf("failed to commit: %w", err)
	}
	return result.Finish(nil), nil
}

// loadCustomers applies the replace policy: production.customers becomes
// exactly the normalized staging snapshot.
func (s *Stage) loadCustomers(ctx context.Context, tx pgx.Tx, result *pipeline.StageResult) error {
	customers, err := readCustomers(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read staging.customers: %w", err)
	}

	for i := range customers {
		normalizeCustomer(&customers[i])
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE production.customers"); err != nil {
		return fmt.Errorf("failed to truncate production.customers: %w", err)
	}

	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone,
			c.RegistrationDate, c.City, c.State, c.Country, c.AgeGroup}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"production", "customers"},
		[]string{"customer_id", "first_name", "last_name", "email", "phone",
			"registration_date", "city", "state", "country", "age_group"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert production.customers: %w", err)
	}

	result.Tables["customers"] = pipeline.NewTableCounts(len(customers), len(customers))
	return nil
}

// loadProducts applies the replace policy with rule validation: rows
// violating price/cost rules are excluded and counted.
func (s *Stage) loadProducts(ctx context.Context, tx pgx.Tx, result *pipeline.StageResult) error {
	products, err := readProducts(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read staging.products: %w", err)
	}

	kept, rejected := ValidateProducts(products)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE production.products"); err != nil {
		return fmt.Errorf("failed to truncate production.products: %w", err)
	}

	rows := make([][]any, len(kept))
	for i, p := range kept {
		rows[i] = []any{p.ProductID, p.ProductName, p.Category, p.SubCategory,
			p.Price, p.Cost, p.Brand, p.StockQuantity, p.SupplierID}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"production", "products"},
		[]string{"product_id", "product_name", "category", "sub_category",
			"price", "cost", "brand", "stock_quantity", "supplier_id"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert production.products: %w", err)
	}

	result.Tables["products"] = tableCounts(len(products), len(kept), rejected)
	return nil
}

// loadTransactions applies the append-only policy: only staging rows whose
// key is absent from production are inserted.
func (s *Stage) loadTransactions(ctx context.Context, tx pgx.Tx, result *pipeline.StageResult) error {
	txns, err := readTransactions(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read staging.transactions: %w", err)
	}

	existing, err := readKeySet(ctx, tx, "SELECT transaction_id FROM production.transactions")
	if err != nil {
		return fmt.Errorf("failed to read existing transaction keys: %w", err)
	}

	kept, rejected := ValidateTransactions(txns, existing)

	rows := make([][]any, len(kept))
	for i, t := range kept {
		rows[i] = []any{t.TransactionID, t.CustomerID, t.TransactionDate,
			t.TransactionTime, t.PaymentMethod, t.ShippingAddress, t.TotalAmount}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"production", "transactions"},
		[]string{"transaction_id", "customer_id", "transaction_date",
			"transaction_time", "payment_method", "shipping_address", "total_amount"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert production.transactions: %w", err)
	}

	result.Tables["transactions"] = tableCounts(len(txns), len(kept), rejected)
	return nil
}

// loadItems applies the append-only policy to transaction line items.
func (s *Stage) loadItems(ctx context.Context, tx pgx.Tx, result *pipeline.StageResult) error {
	items, err := readItems(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read staging.transaction_items: %w", err)
	}

	existing, err := readKeySet(ctx, tx, "SELECT item_id FROM production.transaction_items")
	if err != nil {
		return fmt.Errorf("failed to read existing item keys: %w", err)
	}

	kept, rejected := ValidateItems(items, existing)

	rows := make([][]any, len(kept))
	for i, it := range kept {
		rows[i] = []any{it.ItemID, it.TransactionID, it.ProductID, it.Quantity,
			it.UnitPrice, it.DiscountPercentage, it.LineTotal}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"production", "transaction_items"},
		[]string{"item_id", "transaction_id", "product_id", "quantity",
			"unit_price", "discount_percentage", "line_total"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert production.transaction_items: %w", err)
	}

	result.Tables["transaction_items"] = tableCounts(len(items), len(kept), rejected)
	return nil
}

// tableCounts folds a rejection list into the summary counts.
func tableCounts(input, output int, rejected []Rejection) *pipeline.TableCounts {
	counts := pipeline.NewTableCounts(input, output)
	for _, r := range rejected {
		counts.Reject(r.Reason)
		logging.Debug().
			Str("key", r.Key).
			Str("reason", r.Reason).
			Msg("Row rejected")
	}
	return counts
}

func readCustomers(ctx context.Context, tx pgx.Tx) ([]Customer, error) {
	rows, err := tx.Query(ctx, `
        SELECT customer_id, first_name, last_name, email, phone,
               registration_date, city, state, country, age_group
        FROM staging.customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.CustomerID, &c.FirstName, &c.LastName, &c.Email,
			&c.Phone, &c.RegistrationDate, &c.City, &c.State, &c.Country,
			&c.AgeGroup); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func readProducts(ctx context.Context, tx pgx.Tx) ([]Product, error) {
	rows, err := tx.Query(ctx, `
        SELECT product_id, product_name, category, sub_category,
               price, cost, brand, stock_quantity, supplier_id
        FROM staging.products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Category,
			&p.SubCategory, &p.Price, &p.Cost, &p.Brand, &p.StockQuantity,
			&p.SupplierID); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func readTransactions(ctx context.Context, tx pgx.Tx) ([]Transaction, error) {
	rows, err := tx.Query(ctx, `
        SELECT transaction_id, customer_id, transaction_date,
               transaction_time, payment_method, shipping_address, total_amount
        FROM staging.transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.TransactionID, &t.CustomerID, &t.TransactionDate,
			&t.TransactionTime, &t.PaymentMethod, &t.ShippingAddress,
			&t.TotalAmount); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func readItems(ctx context.Context, tx pgx.Tx) ([]TransactionItem, error) {
	rows, err := tx.Query(ctx, `
        SELECT item_id, transaction_id, product_id, quantity,
               unit_price, discount_percentage, line_total
        FROM staging.transaction_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionItem
	for rows.Next() {
		var it TransactionItem
		if err := rows.Scan(&it.ItemID, &it.TransactionID, &it.ProductID,
			&it.Quantity, &it.UnitPrice, &it.DiscountPercentage,
			&it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// readKeySet loads a single-column key query into a set.
func readKeySet(ctx context.Context, tx pgx.Tx, sql string) (map[string]bool, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, rows.Err()
}
