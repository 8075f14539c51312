package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/quality"
)

var qualityOutput string

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Run data quality checks against production",
	Long: `Run read-only quality checks over the production schema: null and
duplicate emails, orphan transactions, and line total arithmetic. The
results are scored, graded and written as a JSON report.

Example:
  retail-etl quality --connection "postgres://..."`,
	RunE: runQuality,
}

func init() {
	qualityCmd.Flags().StringVar(&qualityOutput, "output", "data/quality",
		"directory the quality report is written to")
}

func runQuality(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	report, err := quality.Run(ctx, pool)
	if err != nil {
		return err
	}
	return report.Write(qualityOutput)
}
