package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
)

// DimensionsStage rebuilds dim_date and dim_payment_method and merges the
// SCD2 customer and product dimensions, all in one transaction.
type DimensionsStage struct {
	StartDate time.Time // dim_date lower bound
	EndDate   time.Time // dim_date upper bound
	RunDate   time.Time // effective date stamped on new SCD2 versions
}

// NewDimensionsStage creates the dimension build for the given dim_date
// range, stamping SCD2 versions with today's UTC date.
func NewDimensionsStage(start, end time.Time) *DimensionsStage {
	return &DimensionsStage{
		StartDate: start,
		EndDate:   end,
		RunDate:   time.Now().UTC().Truncate(24 * time.Hour),
	}
}

func (s *DimensionsStage) Name() string { return "dimensions" }

func (s *DimensionsStage) Inputs() []string {
	return []string{
		"production.customers",
		"production.products",
		"production.transactions",
	}
}

func (s *DimensionsStage) Outputs() []string {
	return []string{
		"warehouse.dim_date",
		"warehouse.dim_payment_method",
		"warehouse.dim_customers",
		"warehouse.dim_products",
	}
}

func (s *DimensionsStage) Run(ctx context.Context, pool *pgxpool.Pool) (*pipeline.StageResult, error) {
	result := pipeline.NewStageResult(s.Name())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return result.Finish(err), fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	days, err := loadDimDate(ctx, tx, s.StartDate, s.EndDate)
	if err != nil {
		return result.Finish(err), err
	}
	result.Tables["dim_date"] = pipeline.NewTableCounts(days, days)

	methods, err := loadDimPaymentMethod(ctx, tx)
	if err != nil {
		return result.Finish(err), err
	}
	result.Tables["dim_payment_method"] = pipeline.NewTableCounts(methods, methods)

	custCounts, err := loadDimCustomers(ctx, tx, s.RunDate)
	if err != nil {
		return result.Finish(err), err
	}
	result.Tables["dim_customers"] = scdTableCounts(custCounts)

	prodCounts, err := loadDimProducts(ctx, tx, s.RunDate)
	if err != nil {
		return result.Finish(err), err
	}
	result.Tables["dim_products"] = scdTableCounts(prodCounts)

	if err := tx.Commit(ctx); err != nil {
		return result.Finish(err), fmt.Errorf("failed to commit: %w", err)
	}

	logging.Info().
		Int("dim_date", days).
		Int("payment_methods", methods).
		Int("customer_versions", custCounts.Versions()).
		Int("product_versions", prodCounts.Versions()).
		Msg("Dimensions built")
	return result.Finish(nil), nil
}

// scdTableCounts maps SCD2 bookkeeping into summary counts. Every
// snapshot row ends up represented in the dimension, so output equals
// input and Filtered stays input - output; the version bookkeeping goes
// in Details.
func scdTableCounts(c SCDCounts) *pipeline.TableCounts {
	counts := pipeline.NewTableCounts(c.Snapshot, c.Snapshot)
	counts.Details = map[string]int{
		"versions_written": c.Versions(),
		"new_keys":         c.Inserted,
		"versions_closed":  c.Closed,
		"unchanged":        c.Unchanged,
	}
	return counts
}

// FactStage rebuilds fact_sales from the production join, resolving
// surrogate keys against the current dimension versions.
type FactStage struct{}

// NewFactStage creates the fact assembly stage.
func NewFactStage() *FactStage {
	return &FactStage{}
}

func (s *FactStage) Name() string { return "fact" }

func (s *FactStage) Inputs() []string {
	return []string{
		"production.transaction_items",
		"production.transactions",
		"production.products",
		"warehouse.dim_customers",
		"warehouse.dim_products",
		"warehouse.dim_payment_method",
	}
}

func (s *FactStage) Outputs() []string {
	return []string{"warehouse.fact_sales"}
}

func (s *FactStage) Run(ctx context.Context, pool *pgxpool.Pool) (*pipeline.StageResult, error) {
	result := pipeline.NewStageResult(s.Name())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return result.Finish(err), fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sources, facts, unresolved, err := loadFactSales(ctx, tx)
	if err != nil {
		return result.Finish(err), err
	}

	counts := pipeline.NewTableCounts(sources, facts)
	for reason, n := range unresolved {
		if counts.RejectedReasons == nil {
			counts.RejectedReasons = make(map[string]int)
		}
		counts.RejectedReasons[reason] = n
	}
	result.Tables["fact_sales"] = counts

	if err := tx.Commit(ctx); err != nil {
		return result.Finish(err), fmt.Errorf("failed to commit: %w", err)
	}

	if counts.Filtered > 0 {
		logging.Warn().
			Int("unresolved", counts.Filtered).
			Interface("reasons", counts.RejectedReasons).
			Msg("Fact rows dropped during surrogate key resolution")
	}
	logging.Info().Int("rows", facts).Msg("Fact table built")
	return result.Finish(nil), nil
}

// AggregateStage recomputes the daily sales summary from fact_sales.
type AggregateStage struct{}

// NewAggregateStage creates the aggregate rebuild stage.
func NewAggregateStage() *AggregateStage {
	return &AggregateStage{}
}

func (s *AggregateStage) Name() string { return "aggregates" }

func (s *AggregateStage) Inputs() []string {
	return []string{"warehouse.fact_sales"}
}

func (s *AggregateStage) Outputs() []string {
	return []string{"warehouse.agg_daily_sales"}
}

func (s *AggregateStage) Run(ctx context.Context, pool *pgxpool.Pool) (*pipeline.StageResult, error) {
	result := pipeline.NewStageResult(s.Name())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return result.Finish(err), fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := rebuildDailySales(ctx, tx)
	if err != nil {
		return result.Finish(err), err
	}
	result.Tables["agg_daily_sales"] = pipeline.NewTableCounts(rows, rows)

	if err := tx.Commit(ctx); err != nil {
		return result.Finish(err), fmt.Errorf("failed to commit: %w", err)
	}

	logging.Info().Int("days", rows).Msg("Daily aggregates rebuilt")
	return result.Finish(nil), nil
}
