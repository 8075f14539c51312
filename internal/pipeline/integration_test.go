//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// End-to-end pipeline tests.
// Run with: go test -tags=integration ./internal/pipeline/...
// Requires PostgreSQL to be available.
// Set RETAIL_ETL_TEST_CONN environment variable to override connection string.

package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/cleanse"
	"github.com/pgEdge/retail-etl/internal/datagen"
	"github.com/pgEdge/retail-etl/internal/db"
	"github.com/pgEdge/retail-etl/internal/ingest"
	"github.com/pgEdge/retail-etl/internal/pipeline"
	"github.com/pgEdge/retail-etl/internal/quality"
	"github.com/pgEdge/retail-etl/internal/testutil"
	"github.com/pgEdge/retail-etl/internal/warehouse"
)

var (
	whStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	whEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, baseConnStr, "pipeline")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	if err := db.CreateSchema(context.Background(), pool); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return pool
}

func generateSnapshot(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dataset := datagen.NewGeneratorWithSeed(datagen.Options{
		Customers:    50,
		Products:     25,
		Transactions: 100,
		StartDate:    whStart,
		EndDate:      whEnd,
	}, 42).Generate()
	if err := dataset.WriteCSV(dir); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	return dir
}

func fullPipeline(rawDir, summaryDir string) *pipeline.Pipeline {
	p := pipeline.New(summaryDir)
	p.Add(
		ingest.NewStage(rawDir),
		cleanse.NewStage(),
		warehouse.NewDimensionsStage(whStart, whEnd),
		warehouse.NewFactStage(),
		warehouse.NewAggregateStage(),
	)
	return p
}

func queryInt(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("Query %q failed: %v", sql, err)
	}
	return n
}

func TestFullPipeline(t *testing.T) {
	pool := setupTestDB(t)
	rawDir := generateSnapshot(t)
	ctx := context.Background()

	summary, err := fullPipeline(rawDir, t.TempDir()).Run(ctx, pool)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}
	if len(summary.Stages) != 5 {
		t.Fatalf("Expected 5 stage results, got %d", len(summary.Stages))
	}

	// Production mirrors the generated snapshot (the generator emits only
	// valid rows, so nothing is filtered).
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM production.customers"); n != 50 {
		t.Errorf("production.customers = %d, want 50", n)
	}
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM production.products"); n != 25 {
		t.Errorf("production.products = %d, want 25", n)
	}
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM production.transactions"); n != 100 {
		t.Errorf("production.transactions = %d, want 100", n)
	}

	// Full year of dim_date (2024 is a leap year)
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.dim_date"); n != 366 {
		t.Errorf("dim_date = %d, want 366", n)
	}

	// One current version per business key
	if n := queryInt(t, pool,
		"SELECT COUNT(*) FROM warehouse.dim_customers WHERE is_current"); n != 50 {
		t.Errorf("current dim_customers = %d, want 50", n)
	}
	if n := queryInt(t, pool,
		"SELECT COUNT(*) FROM warehouse.dim_products WHERE is_current"); n != 25 {
		t.Errorf("current dim_products = %d, want 25", n)
	}

	// Every production line item resolves to a fact row
	items := queryInt(t, pool, "SELECT COUNT(*) FROM production.transaction_items")
	facts := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.fact_sales")
	if facts != items {
		t.Errorf("fact_sales = %d, want %d", facts, items)
	}

	// Aggregate revenue matches the fact table
	var factRevenue, aggRevenue float64
	if err := pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(line_total), 0) FROM warehouse.fact_sales").Scan(&factRevenue); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(total_revenue), 0) FROM warehouse.agg_daily_sales").Scan(&aggRevenue); err != nil {
		t.Fatal(err)
	}
	if diff := factRevenue - aggRevenue; diff > 0.01 || diff < -0.01 {
		t.Errorf("Aggregate revenue %v != fact revenue %v", aggRevenue, factRevenue)
	}
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	rawDir := generateSnapshot(t)
	ctx := context.Background()

	if _, err := fullPipeline(rawDir, t.TempDir()).Run(ctx, pool); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	txnsBefore := queryInt(t, pool, "SELECT COUNT(*) FROM production.transactions")
	itemsBefore := queryInt(t, pool, "SELECT COUNT(*) FROM production.transaction_items")
	dimVersionsBefore := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.dim_customers")
	factsBefore := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.fact_sales")

	if _, err := fullPipeline(rawDir, t.TempDir()).Run(ctx, pool); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	// Append-only tables ignore the duplicate snapshot
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM production.transactions"); n != txnsBefore {
		t.Errorf("transactions grew on rerun: %d -> %d", txnsBefore, n)
	}
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM production.transaction_items"); n != itemsBefore {
		t.Errorf("transaction_items grew on rerun: %d -> %d", itemsBefore, n)
	}

	// Unchanged snapshot creates no new dimension versions
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.dim_customers"); n != dimVersionsBefore {
		t.Errorf("dim_customers versions grew on rerun: %d -> %d", dimVersionsBefore, n)
	}
	if n := queryInt(t, pool, "SELECT COUNT(*) FROM warehouse.fact_sales"); n != factsBefore {
		t.Errorf("fact_sales changed on rerun: %d -> %d", factsBefore, n)
	}
}

func TestCleanseFiltersInvalidProduct(t *testing.T) {
	pool := setupTestDB(t)
	rawDir := generateSnapshot(t)
	ctx := context.Background()

	// Ingest the clean snapshot, then stage one invalid product.
	p := pipeline.New(t.TempDir())
	p.Add(ingest.NewStage(rawDir))
	if _, err := p.Run(ctx, pool); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `
        INSERT INTO staging.products
            (product_id, product_name, category, sub_category, price, cost, brand, stock_quantity, supplier_id)
        VALUES ('PROD9999', 'Freebie', 'Electronics', 'Gadgets', 0, 10, 'Acme', 5, 'SUP001')`); err != nil {
		t.Fatal(err)
	}

	p = pipeline.New(t.TempDir())
	p.Add(cleanse.NewStage())
	summary, err := p.Run(ctx, pool)
	if err != nil {
		t.Fatalf("Cleanse failed: %v", err)
	}

	if n := queryInt(t, pool,
		"SELECT COUNT(*) FROM production.products WHERE product_id = 'PROD9999'"); n != 0 {
		t.Error("Invalid product reached production")
	}

	counts := summary.Stages[0].Tables["products"]
	if counts.Filtered != 1 {
		t.Errorf("products filtered = %d, want 1", counts.Filtered)
	}
	if counts.RejectedReasons[cleanse.ReasonInvalidPrice] != 1 {
		t.Errorf("Expected 1 invalid_price rejection, got %v", counts.RejectedReasons)
	}
}

func TestSCD2CustomerChange(t *testing.T) {
	pool := setupTestDB(t)
	rawDir := generateSnapshot(t)
	ctx := context.Background()

	if _, err := fullPipeline(rawDir, t.TempDir()).Run(ctx, pool); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// Change a tracked attribute and rebuild the warehouse.
	if _, err := pool.Exec(ctx,
		"UPDATE production.customers SET city = 'Relocated' WHERE customer_id = 'CUST0001'"); err != nil {
		t.Fatal(err)
	}

	p := pipeline.New(t.TempDir())
	p.Add(
		warehouse.NewDimensionsStage(whStart, whEnd),
		warehouse.NewFactStage(),
		warehouse.NewAggregateStage(),
	)
	if _, err := p.Run(ctx, pool); err != nil {
		t.Fatalf("Warehouse rebuild failed: %v", err)
	}

	versions := queryInt(t, pool,
		"SELECT COUNT(*) FROM warehouse.dim_customers WHERE customer_id = 'CUST0001'")
	if versions != 2 {
		t.Fatalf("Expected 2 versions for changed customer, got %d", versions)
	}
	current := queryInt(t, pool,
		"SELECT COUNT(*) FROM warehouse.dim_customers WHERE customer_id = 'CUST0001' AND is_current")
	if current != 1 {
		t.Errorf("Expected exactly 1 current version, got %d", current)
	}

	// Closed version ends the day before the new one takes effect
	var closedOK bool
	if err := pool.QueryRow(ctx, `
        SELECT prev.end_date = curr.effective_date - 1
        FROM warehouse.dim_customers prev
        JOIN warehouse.dim_customers curr ON curr.customer_id = prev.customer_id AND curr.is_current
        WHERE prev.customer_id = 'CUST0001' AND NOT prev.is_current`).Scan(&closedOK); err != nil {
		t.Fatal(err)
	}
	if !closedOK {
		t.Error("Closed version end_date is not effective_date - 1 day")
	}

	// Facts point at the new current version
	orphanFacts := queryInt(t, pool, `
        SELECT COUNT(*) FROM warehouse.fact_sales f
        JOIN warehouse.dim_customers d ON f.customer_key = d.customer_key
        WHERE NOT d.is_current`)
	if orphanFacts != 0 {
		t.Errorf("%d fact rows reference closed dimension versions", orphanFacts)
	}
}

func TestQualityReportOnCleanData(t *testing.T) {
	pool := setupTestDB(t)
	rawDir := generateSnapshot(t)
	ctx := context.Background()

	if _, err := fullPipeline(rawDir, t.TempDir()).Run(ctx, pool); err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	report, err := quality.Run(ctx, pool)
	if err != nil {
		t.Fatalf("Quality checks failed: %v", err)
	}
	if report.OverallQualityScore != 100 {
		t.Errorf("score = %d, want 100 (checks: %+v)",
			report.OverallQualityScore, report.ChecksPerformed)
	}
	if report.QualityGrade != "A" {
		t.Errorf("grade = %q, want A", report.QualityGrade)
	}
}

func TestRunLockBlocksConcurrentRun(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	lock, err := db.AcquireRunLock(ctx, pool)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}
	defer lock.Release(ctx)

	p := pipeline.New(t.TempDir())
	p.Add(cleanse.NewStage())
	if _, err := p.Run(ctx, pool); err == nil {
		t.Fatal("Expected pipeline run to fail while lock is held")
	}
}
