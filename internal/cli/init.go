package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/db"
	"github.com/pgEdge/retail-etl/internal/logging"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the staging, production and warehouse schemas",
	Long: `Create the three pipeline schemas and all of their tables. Existing
tables are left untouched unless --drop-existing is given.

Example:
  retail-etl init --connection "postgres://..." --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schemas before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if initDropExisting {
		logging.Info().Msg("Dropping existing schemas")
		if err := db.DropSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to drop schemas: %w", err)
		}
	}

	logging.Info().Msg("Creating schemas")
	if err := db.CreateSchema(ctx, pool); err != nil {
		return fmt.Errorf("failed to create schemas: %w", err)
	}

	logging.Info().Msg("Database initialization complete")
	return nil
}
