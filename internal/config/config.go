//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for retail-etl.
// Configuration is loaded from config files, environment variables
// (RETAIL_ETL_ prefix) and CLI flags. CLI flags take precedence over
// environment variables, which take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DateFormat is the layout for all configured dates.
const DateFormat = "2006-01-02"

// Config holds all configuration for retail-etl.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// RawDir is the directory holding the generated CSV snapshot.
	RawDir string `mapstructure:"raw_dir"`

	// SummaryDir is the directory run summaries are written to.
	SummaryDir string `mapstructure:"summary_dir"`

	// Generate holds configuration for synthetic data generation.
	Generate GenerateConfig `mapstructure:"generate"`

	// Warehouse holds configuration for the warehouse load.
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
}

// GenerateConfig holds configuration for the synthetic data generator.
type GenerateConfig struct {
	// Customers is the number of customers to generate.
	Customers int `mapstructure:"customers"`

	// Products is the number of products to generate.
	Products int `mapstructure:"products"`

	// Transactions is the number of transactions to generate.
	Transactions int `mapstructure:"transactions"`

	// StartDate is the earliest transaction date (YYYY-MM-DD).
	StartDate string `mapstructure:"start_date"`

	// EndDate is the latest transaction date (YYYY-MM-DD).
	EndDate string `mapstructure:"end_date"`

	// Seed makes generation reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// WarehouseConfig holds configuration for the warehouse load.
type WarehouseConfig struct {
	// StartDate is the first day covered by dim_date (YYYY-MM-DD).
	StartDate string `mapstructure:"start_date"`

	// EndDate is the last day covered by dim_date (YYYY-MM-DD).
	EndDate string `mapstructure:"end_date"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		RawDir:     "data/raw",
		SummaryDir: "data/summaries",
		Generate: GenerateConfig{
			Customers:    500,
			Products:     200,
			Transactions: 1000,
			StartDate:    "2024-01-01",
			EndDate:      "2024-12-31",
		},
		Warehouse: WarehouseConfig{
			StartDate: "2024-01-01",
			EndDate:   "2024-12-31",
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./retail-etl.yaml
// 3. ~/.config/retail-etl/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("retail-etl")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "retail-etl"))
	}

	// Connection credentials usually arrive via the environment
	v.SetEnvPrefix("RETAIL_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file values
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.Customers < 1 {
		return fmt.Errorf("generate.customers must be at least 1")
	}
	if c.Generate.Products < 1 {
		return fmt.Errorf("generate.products must be at least 1")
	}
	if c.Generate.Transactions < 1 {
		return fmt.Errorf("generate.transactions must be at least 1")
	}
	if _, _, err := parseDateRange(c.Generate.StartDate, c.Generate.EndDate); err != nil {
		return fmt.Errorf("generate date range: %w", err)
	}
	return nil
}

// ValidateWarehouse checks configuration required for the warehouse load.
func (c *Config) ValidateWarehouse() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, _, err := parseDateRange(c.Warehouse.StartDate, c.Warehouse.EndDate); err != nil {
		return fmt.Errorf("warehouse date range: %w", err)
	}
	return nil
}

// GenerateDateRange returns the parsed transaction date bounds.
func (c *Config) GenerateDateRange() (time.Time, time.Time, error) {
	return parseDateRange(c.Generate.StartDate, c.Generate.EndDate)
}

// WarehouseDateRange returns the parsed dim_date bounds.
func (c *Config) WarehouseDateRange() (time.Time, time.Time, error) {
	return parseDateRange(c.Warehouse.StartDate, c.Warehouse.EndDate)
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(DateFormat, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateFormat, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s before start date %s", end, start)
	}
	return s, e, nil
}
