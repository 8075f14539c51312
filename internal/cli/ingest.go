package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/ingest"
)

var ingestInput string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the raw CSV snapshot into staging",
	Long: `Load the four CSV files from the raw data directory into the staging
schema. Each staging table is truncated and reloaded; the whole load runs
in one transaction, and a missing file aborts before anything is written.

Example:
  retail-etl ingest --connection "postgres://..."`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "",
		"raw data directory (default: data/raw)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestInput != "" {
		cfg.RawDir = ingestInput
	}
	return executePipeline(context.Background(), ingest.NewStage(cfg.RawDir))
}
