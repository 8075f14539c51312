package warehouse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// SCDCounts is the version bookkeeping for one dimension build.
type SCDCounts struct {
	Snapshot  int // rows in the incoming production snapshot
	Inserted  int // new business keys (first version)
	Closed    int // versions closed because attributes changed
	Unchanged int // keys whose current version already matches
}

// Versions written this run: one per new key plus one per change.
func (c SCDCounts) Versions() int {
	return c.Inserted + c.Closed
}

// DiffVersions compares incoming attribute fingerprints against the
// current-version set by business key. Keys absent from the snapshot are
// left alone, so history for retired keys is preserved. Returned slices
// are sorted for deterministic processing.
func DiffVersions(current, incoming map[string]string) (newKeys, changed, unchanged []string) {
	for key, fp := range incoming {
		cur, ok := current[key]
		switch {
		case !ok:
			newKeys = append(newKeys, key)
		case cur != fp:
			changed = append(changed, key)
		default:
			unchanged = append(unchanged, key)
		}
	}
	sort.Strings(newKeys)
	sort.Strings(changed)
	sort.Strings(unchanged)
	return newKeys, changed, unchanged
}

// fingerprint joins attribute values into a comparable string. NULL and
// empty string must not collide.
func fingerprint(fields ...*string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if f == nil {
			parts[i] = "\x00"
		} else {
			parts[i] = *f
		}
	}
	return strings.Join(parts, "\x1f")
}

// FullName joins first and last name, tolerating NULL on either side.
func FullName(first, last *string) *string {
	var parts []string
	if first != nil {
		parts = append(parts, *first)
	}
	if last != nil {
		parts = append(parts, *last)
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

// PriceRange buckets a product price for the warehouse.
func PriceRange(price float64) string {
	switch {
	case price < 50:
		return "Budget"
	case price < 200:
		return "Mid-range"
	default:
		return "Premium"
	}
}

// customerVersion is the warehouse projection of a production customer.
type customerVersion struct {
	CustomerID       string
	FullName         *string
	Email            *string
	City             *string
	State            *string
	Country          *string
	AgeGroup         *string
	RegistrationDate *time.Time
}

func (v customerVersion) fingerprint() string {
	var regDate *string
	if v.RegistrationDate != nil {
		s := v.RegistrationDate.Format("2006-01-02")
		regDate = &s
	}
	return fingerprint(v.FullName, v.Email, v.City, v.State, v.Country, v.AgeGroup, regDate)
}

// productVersion is the warehouse projection of a production product.
type productVersion struct {
	ProductID   string
	ProductName *string
	Category    *string
	SubCategory *string
	Brand       *string
	PriceRange  string
}

func (v productVersion) fingerprint() string {
	return fingerprint(v.ProductName, v.Category, v.SubCategory, v.Brand, &v.PriceRange)
}

// loadDimCustomers merges the production customer snapshot into
// dim_customers with SCD2 semantics: changed keys get the current version
// closed (end_date = runDate - 1 day) and a new current version inserted;
// unchanged keys are left as they are. The table is never truncated.
func loadDimCustomers(ctx context.Context, tx pgx.Tx, runDate time.Time) (SCDCounts, error) {
	var counts SCDCounts

	incoming := make(map[string]customerVersion)
	rows, err := tx.Query(ctx, `
        SELECT customer_id, first_name, last_name, email, city, state,
               country, age_group, registration_date
        FROM production.customers`)
	if err != nil {
		return counts, fmt.Errorf("failed to read production.customers: %w", err)
	}
	for rows.Next() {
		var v customerVersion
		var first, last *string
		if err := rows.Scan(&v.CustomerID, &first, &last, &v.Email, &v.City,
			&v.State, &v.Country, &v.AgeGroup, &v.RegistrationDate); err != nil {
			rows.Close()
			return counts, err
		}
		v.FullName = FullName(first, last)
		incoming[v.CustomerID] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return counts, err
	}
	counts.Snapshot = len(incoming)

	current, err := readCurrentFingerprints(ctx, tx, "warehouse.dim_customers", "customer_id",
		[]string{"full_name", "email", "city", "state", "country", "age_group", "registration_date::text"})
	if err != nil {
		return counts, err
	}

	currentFP := make(map[string]string, len(current))
	for key, fields := range current {
		currentFP[key] = fingerprint(fields...)
	}
	incomingFP := make(map[string]string, len(incoming))
	for key, v := range incoming {
		incomingFP[key] = v.fingerprint()
	}

	newKeys, changed, unchanged := DiffVersions(currentFP, incomingFP)
	counts.Inserted = len(newKeys)
	counts.Closed = len(changed)
	counts.Unchanged = len(unchanged)

	if err := closeVersions(ctx, tx, "warehouse.dim_customers", "customer_id", changed, runDate); err != nil {
		return counts, err
	}

	inserts := make([][]any, 0, len(newKeys)+len(changed))
	for _, key := range append(newKeys, changed...) {
		v := incoming[key]
		inserts = append(inserts, []any{v.CustomerID, v.FullName, v.Email, v.City,
			v.State, v.Country, v.AgeGroup, v.RegistrationDate, runDate, nil, true})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"warehouse", "dim_customers"},
		[]string{"customer_id", "full_name", "email", "city", "state", "country",
			"age_group", "registration_date", "effective_date", "end_date", "is_current"},
		pgx.CopyFromRows(inserts)); err != nil {
		return counts, fmt.Errorf("failed to insert dim_customers versions: %w", err)
	}

	return counts, nil
}

// loadDimProducts merges the production product snapshot into
// dim_products with the same SCD2 semantics as loadDimCustomers.
func loadDimProducts(ctx context.Context, tx pgx.Tx, runDate time.Time) (SCDCounts, error) {
	var counts SCDCounts

	incoming := make(map[string]productVersion)
	rows, err := tx.Query(ctx, `
        SELECT product_id, product_name, category, sub_category, brand, price
        FROM production.products`)
	if err != nil {
		return counts, fmt.Errorf("failed to read production.products: %w", err)
	}
	for rows.Next() {
		var v productVersion
		var price float64
		if err := rows.Scan(&v.ProductID, &v.ProductName, &v.Category,
			&v.SubCategory, &v.Brand, &price); err != nil {
			rows.Close()
			return counts, err
		}
		v.PriceRange = PriceRange(price)
		incoming[v.ProductID] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return counts, err
	}
	counts.Snapshot = len(incoming)

	current, err := readCurrentFingerprints(ctx, tx, "warehouse.dim_products", "product_id",
		[]string{"product_name", "category", "sub_category", "brand", "price_range"})
	if err != nil {
		return counts, err
	}

	currentFP := make(map[string]string, len(current))
	for key, fields := range current {
		currentFP[key] = fingerprint(fields...)
	}
	incomingFP := make(map[string]string, len(incoming))
	for key, v := range incoming {
		incomingFP[key] = v.fingerprint()
	}

	newKeys, changed, unchanged := DiffVersions(currentFP, incomingFP)
	counts.Inserted = len(newKeys)
	counts.Closed = len(changed)
	counts.Unchanged = len(unchanged)

	if err := closeVersions(ctx, tx, "warehouse.dim_products", "product_id", changed, runDate); err != nil {
		return counts, err
	}

	inserts := make([][]any, 0, len(newKeys)+len(changed))
	for _, key := range append(newKeys, changed...) {
		v := incoming[key]
		inserts = append(inserts, []any{v.ProductID, v.ProductName, v.Category,
			v.SubCategory, v.Brand, v.PriceRange, runDate, nil, true})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"warehouse", "dim_products"},
		[]string{"product_id", "product_name", "category", "sub_category", "brand",
			"price_range", "effective_date", "end_date", "is_current"},
		pgx.CopyFromRows(inserts)); err != nil {
		return counts, fmt.Errorf("failed to insert dim_products versions: %w", err)
	}

	return counts, nil
}

// readCurrentFingerprints loads the attribute columns of all current
// versions keyed by business key.
func readCurrentFingerprints(ctx context.Context, tx pgx.Tx, table, keyCol string, attrCols []string) (map[string][]*string, error) {
	cols := append([]string{keyCol}, attrCols...)
	sql, args, err := builder().
		Select(cols...).
		From(table).
		Where(squirrel.Eq{"is_current": true}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read current versions of %s: %w", table, err)
	}
	defer rows.Close()

	current := make(map[string][]*string)
	for rows.Next() {
		var key string
		fields := make([]*string, len(attrCols))
		dest := make([]any, 0, len(cols))
		dest = append(dest, &key)
		for i := range fields {
			dest = append(dest, &fields[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		current[key] = fields
	}
	return current, rows.Err()
}

// closeVersions ends the current version of each changed business key.
func closeVersions(ctx context.Context, tx pgx.Tx, table, keyCol string, keys []string, runDate time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	endDate := runDate.AddDate(0, 0, -1)
	sql := fmt.Sprintf(
		"UPDATE %s SET end_date = $1, is_current = FALSE WHERE %s = $2 AND is_current",
		table, keyCol)

	batch := &pgx.Batch{}
	for _, key := range keys {
		batch.Queue(sql, endDate, key)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range keys {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to close version in %s: %w", table, err)
		}
	}
	return nil
}
