//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse builds the star schema: dimension tables, the sales
// fact table and the daily aggregate.
package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// DateRow is one day in dim_date.
type DateRow struct {
	DateKey    int
	FullDate   time.Time
	Year       int
	Quarter    int
	Month      int
	Day        int
	MonthName  string
	DayName    string
	WeekOfYear int
	IsWeekend  bool
}

// DateKey returns the YYYYMMDD key for a date.
func DateKey(t time.Time) int {
	key, _ := strconv.Atoi(t.Format("20060102"))
	return key
}

// BuildDateRows generates one row per calendar day over [start, end]
// inclusive. The sequence is a pure function of the bounds.
func BuildDateRows(start, end time.Time) []DateRow {
	var rows []DateRow
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		_, week := d.ISOWeek()
		wd := d.Weekday()
		rows = append(rows, DateRow{
			DateKey:    DateKey(d),
			FullDate:   d,
			Year:       d.Year(),
			Quarter:    (int(d.Month())-1)/3 + 1,
			Month:      int(d.Month()),
			Day:        d.Day(),
			MonthName:  d.Month().String(),
			DayName:    wd.String(),
			WeekOfYear: week,
			IsWeekend:  wd == time.Saturday || wd == time.Sunday,
		})
	}
	return rows
}

// loadDimDate rebuilds warehouse.dim_date for the configured range.
func loadDimDate(ctx context.Context, tx pgx.Tx, start, end time.Time) (int, error) {
	dateRows := BuildDateRows(start, end)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE warehouse.dim_date"); err != nil {
		return 0, fmt.Errorf("failed to truncate dim_date: %w", err)
	}

	rows := make([][]any, len(dateRows))
	for i, d := range dateRows {
		rows[i] = []any{d.DateKey, d.FullDate, d.Year, d.Quarter, d.Month, d.Day,
			d.MonthName, d.DayName, d.WeekOfYear, d.IsWeekend}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"warehouse", "dim_date"},
		[]string{"date_key", "full_date", "year", "quarter", "month", "day",
			"month_name", "day_name", "week_of_year", "is_weekend"},
		pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("failed to insert dim_date: %w", err)
	}

	return len(dateRows), nil
}
