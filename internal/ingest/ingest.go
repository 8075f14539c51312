//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest loads the raw CSV snapshot into the staging schema.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05"
)

// tableSpec maps one CSV file onto its staging table.
type tableSpec struct {
	table   string
	file    string
	columns []string
	parse   func(record []string) ([]any, error)
}

var tableSpecs = []tableSpec{
	{
		table: "customers",
		file:  "customers.csv",
		columns: []string{"customer_id", "first_name", "last_name", "email", "phone",
			"registration_date", "city", "state", "country", "age_group"},
		parse: parseCustomerRow,
	},
	{
		table: "products",
		file:  "products.csv",
		columns: []string{"product_id", "product_name", "category", "sub_category",
			"price", "cost", "brand", "stock_quantity", "supplier_id"},
		parse: parseProductRow,
	},
	{
		table: "transactions",
		file:  "transactions.csv",
		columns: []string{"transaction_id", "customer_id", "transaction_date",
			"transaction_time", "payment_method", "shipping_address", "total_amount"},
		parse: parseTransactionRow,
	},
	{
		table: "transaction_items",
		file:  "transaction_items.csv",
		columns: []string{"item_id", "transaction_id", "product_id", "quantity",
			"unit_price", "discount_percentage", "line_total"},
		parse: parseItemRow,
	},
}

// Stage loads the four CSV files from RawDir into staging. Each table is
// truncated and reloaded; all four loads share one transaction. A missing
// file fails the stage before anything is written.
type Stage struct {
	RawDir string
}

// NewStage creates the ingest stage reading from rawDir.
func NewStage(rawDir string) *Stage {
	return &Stage{RawDir: rawDir}
}

// Name returns the stage name.
func (s *Stage) Name() string { return "ingest" }

// Inputs returns nil: the stage reads files, not tables.
func (s *Stage) Inputs() []string { return nil }

// Outputs returns the staging tables the stage writes.
func (s *Stage) Outputs() []string {
	return []string{
		"staging.customers",
		"staging.products",
		"staging.transactions",
		"staging.transaction_items",
	}
}

// Run executes the stage.
func (s *Stage) Run(ctx context.Context, pool *pgxpool.Pool) (*pipeline.StageResult, error) {
	result := pipeline.NewStageResult(s.Name())

	// All files must be present before any table is touched.
	for _, spec := range tableSpecs {
		path := filepath.Join(s.RawDir, spec.file)
		if _, err := os.Stat(path); err != nil {
			err = fmt.Errorf("missing file: %s", spec.file)
			return result.Finish(err), err
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return result.Finish(err), fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, spec := range tableSpecs {
		n, err := s.loadTable(ctx, tx, spec)
		if err != nil {
			return result.Finish(err), err
		}
		result.Tables[spec.table] = pipeline.NewTableCounts(n, n)
		logging.Info().
			Str("table", "staging."+spec.table).
			Int("rows", n).
			Msg("Staging table loaded")
	}

	if err := tx.Commit(ctx); err != nil {
		return result.Finish(err), fmt.Errorf("failed to commit: %w", err)
	}
	return result.Finish(nil), nil
}

func (s *Stage) loadTable(ctx context.Context, tx pgx.Tx, spec tableSpec) (int, error) {
	rows, err := readCSVFile(filepath.Join(s.RawDir, spec.file), spec)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE staging."+spec.table); err != nil {
		return 0, fmt.Errorf("failed to truncate staging.%s: %w", spec.table, err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"staging", spec.table},
		spec.columns,
		pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("failed to insert staging.%s: %w", spec.table, err)
	}

	// Verify the load landed completely.
	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM staging."+spec.table).Scan(&count); err != nil {
		return 0, err
	}
	if count != len(rows) {
		return 0, fmt.Errorf("staging.%s row count mismatch: loaded %d, found %d",
			spec.table, len(rows), count)
	}
	return len(rows), nil
}

// readCSVFile parses one CSV file into typed rows for CopyFrom.
func readCSVFile(path string, spec tableSpec) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", spec.file, err)
	}
	if err := checkHeader(spec, header); err != nil {
		return nil, err
	}

	var rows [][]any
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", spec.file, err)
		}
		line++
		values, err := spec.parse(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", spec.file, line, err)
		}
		rows = append(rows, values)
	}
	return rows, nil
}

func checkHeader(spec tableSpec, header []string) error {
	if len(header) != len(spec.columns) {
		return fmt.Errorf("%s: expected %d columns, found %d",
			spec.file, len(spec.columns), len(header))
	}
	for i, col := range spec.columns {
		if header[i] != col {
			return fmt.Errorf("%s: expected column %q at position %d, found %q",
				spec.file, col, i, header[i])
		}
	}
	return nil
}

func parseCustomerRow(record []string) ([]any, error) {
	regDate, err := parseDate(record[5])
	if err != nil {
		return nil, fmt.Errorf("registration_date: %w", err)
	}
	return []any{record[0], nullable(record[1]), nullable(record[2]),
		nullable(record[3]), nullable(record[4]), regDate,
		nullable(record[6]), nullable(record[7]), nullable(record[8]),
		nullable(record[9])}, nil
}

func parseProductRow(record []string) ([]any, error) {
	price, err := parseFloat(record[4])
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	cost, err := parseFloat(record[5])
	if err != nil {
		return nil, fmt.Errorf("cost: %w", err)
	}
	stock, err := parseInt(record[7])
	if err != nil {
		return nil, fmt.Errorf("stock_quantity: %w", err)
	}
	return []any{record[0], nullable(record[1]), nullable(record[2]),
		nullable(record[3]), price, cost, nullable(record[6]), stock,
		nullable(record[8])}, nil
}

func parseTransactionRow(record []string) ([]any, error) {
	txnDate, err := parseDate(record[2])
	if err != nil {
		return nil, fmt.Errorf("transaction_date: %w", err)
	}
	txnTime, err := parseTime(record[3])
	if err != nil {
		return nil, fmt.Errorf("transaction_time: %w", err)
	}
	total, err := parseFloat(record[6])
	if err != nil {
		return nil, fmt.Errorf("total_amount: %w", err)
	}
	return []any{record[0], nullable(record[1]), txnDate, txnTime,
		nullable(record[4]), nullable(record[5]), total}, nil
}

func parseItemRow(record []string) ([]any, error) {
	quantity, err := parseInt(record[3])
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	unitPrice, err := parseFloat(record[4])
	if err != nil {
		return nil, fmt.Errorf("unit_price: %w", err)
	}
	discount, err := parseFloat(record[5])
	if err != nil {
		return nil, fmt.Errorf("discount_percentage: %w", err)
	}
	lineTotal, err := parseFloat(record[6])
	if err != nil {
		return nil, fmt.Errorf("line_total: %w", err)
	}
	return []any{record[0], record[1], record[2], quantity, unitPrice,
		discount, lineTotal}, nil
}

// nullable maps empty CSV fields to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseDate(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// parseTime converts HH:MM:SS into pgtype.Time, which COPY can encode
// into a TIME column in the binary wire format.
func parseTime(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return nil, err
	}
	usec := int64(t.Hour()*3600+t.Minute()*60+t.Second()) * 1_000_000
	return pgtype.Time{Microseconds: usec, Valid: true}, nil
}

func parseFloat(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}
	return int32(n), nil
}
