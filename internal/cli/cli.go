//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for retail-etl.
package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/retail-etl/internal/config"
	"github.com/pgEdge/retail-etl/internal/db"
	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
	"github.com/pgEdge/retail-etl/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "retail-etl",
		Short: "Layered retail data pipeline for PostgreSQL",
		Long: `retail-etl moves retail transaction data through a layered PostgreSQL
pipeline: raw CSV snapshots are ingested into a staging schema, cleansed
and validated into a production schema, and loaded into a warehouse star
schema with slowly changing dimensions and daily aggregates.

Each run writes a JSON summary with per-stage row counts, so filtered and
rejected records are always accounted for.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./retail-etl.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(warehouseCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// connect validates the connection config and opens a pool.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// executePipeline runs the given stages through the pipeline driver and
// logs the per-table counts of each stage.
func executePipeline(ctx context.Context, stages ...pipeline.Stage) error {
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	p := pipeline.New(cfg.SummaryDir)
	p.Add(stages...)

	summary, err := p.Run(ctx, pool)
	if summary != nil {
		for _, stage := range summary.Stages {
			for table, counts := range stage.Tables {
				logging.Info().
					Str("stage", stage.Stage).
					Str("table", table).
					Int("input", counts.Input).
					Int("output", counts.Output).
					Int("filtered", counts.Filtered).
					Msg("Stage table counts")
			}
		}
	}
	if err != nil {
		return err
	}

	logging.Info().
		Str("run_id", summary.RunID).
		Float64("seconds", summary.TotalExecutionSeconds).
		Msg("Pipeline run complete")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
