package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/cleanse"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Cleanse staging data into production",
	Long: `Move the staged snapshot into the production schema. Customers and
products are fully replaced with normalized and validated rows;
transactions and transaction items are appended by key, so re-running
against the same snapshot adds nothing.

Example:
  retail-etl transform --connection "postgres://..."`,
	RunE: runTransform,
}

func runTransform(cmd *cobra.Command, args []string) error {
	return executePipeline(context.Background(), cleanse.NewStage())
}
