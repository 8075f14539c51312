package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/pipeline"
	"github.com/pgEdge/retail-etl/internal/warehouse"
)

var (
	warehouseStartDate string
	warehouseEndDate   string
)

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Load the warehouse star schema from production",
	Long: `Build the warehouse layer from production: the date and payment
method dimensions, the slowly changing customer and product dimensions,
the sales fact table and the daily sales aggregate. Dimension history is
preserved; changed attributes close the current version and open a new
one.

Example:
  retail-etl warehouse --connection "postgres://..." --start-date 2024-01-01 --end-date 2024-12-31`,
	RunE: runWarehouse,
}

func init() {
	warehouseCmd.Flags().StringVar(&warehouseStartDate, "start-date", "",
		"first day covered by the date dimension (YYYY-MM-DD)")
	warehouseCmd.Flags().StringVar(&warehouseEndDate, "end-date", "",
		"last day covered by the date dimension (YYYY-MM-DD)")
}

// warehouseStages builds the three warehouse stages from config.
func warehouseStages() ([]pipeline.Stage, error) {
	if warehouseStartDate != "" {
		cfg.Warehouse.StartDate = warehouseStartDate
	}
	if warehouseEndDate != "" {
		cfg.Warehouse.EndDate = warehouseEndDate
	}
	if err := cfg.ValidateWarehouse(); err != nil {
		return nil, err
	}
	start, end, err := cfg.WarehouseDateRange()
	if err != nil {
		return nil, err
	}

	return []pipeline.Stage{
		warehouse.NewDimensionsStage(start, end),
		warehouse.NewFactStage(),
		warehouse.NewAggregateStage(),
	}, nil
}

func runWarehouse(cmd *cobra.Command, args []string) error {
	stages, err := warehouseStages()
	if err != nil {
		return err
	}
	return executePipeline(context.Background(), stages...)
}
