//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package quality runs read-only data quality checks over the production
// schema and produces a scored report.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
)

// ReportFile is the name of the JSON report written by Write.
const ReportFile = "quality_report.json"

// Check statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// NullChecks reports completeness violations.
type NullChecks struct {
	Status         string         `json:"status"`
	NullViolations int            `json:"null_violations"`
	Details        map[string]int `json:"details"`
}

// DuplicateChecks reports uniqueness violations.
type DuplicateChecks struct {
	Status          string `json:"status"`
	DuplicatesFound int    `json:"duplicates_found"`
}

// ReferentialIntegrity reports dangling foreign references.
type ReferentialIntegrity struct {
	Status        string `json:"status"`
	OrphanRecords int    `json:"orphan_records"`
}

// DataConsistency reports arithmetic mismatches in line items.
type DataConsistency struct {
	Status     string `json:"status"`
	Mismatches int    `json:"mismatches"`
}

// Checks groups the individual check results.
type Checks struct {
	NullChecks           NullChecks           `json:"null_checks"`
	DuplicateChecks      DuplicateChecks      `json:"duplicate_checks"`
	ReferentialIntegrity ReferentialIntegrity `json:"referential_integrity"`
	DataConsistency      DataConsistency      `json:"data_consistency"`
}

// Report is the complete quality report.
type Report struct {
	CheckTimestamp      time.Time `json:"check_timestamp"`
	ChecksPerformed     Checks    `json:"checks_performed"`
	OverallQualityScore int       `json:"overall_quality_score"`
	QualityGrade        string    `json:"quality_grade"`
}

// Violations sums all individual check violations.
func (c Checks) Violations() int {
	return c.NullChecks.NullViolations +
		c.DuplicateChecks.DuplicatesFound +
		c.ReferentialIntegrity.OrphanRecords +
		c.DataConsistency.Mismatches
}

// Score maps a violation count to a 0-100 quality score.
func Score(violations int) int {
	score := 100 - violations
	if score < 0 {
		return 0
	}
	return score
}

// Grade maps a quality score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// NewReport assembles a report from check results.
func NewReport(checks Checks) *Report {
	score := Score(checks.Violations())
	return &Report{
		CheckTimestamp:      time.Now().UTC(),
		ChecksPerformed:     checks,
		OverallQualityScore: score,
		QualityGrade:        Grade(score),
	}
}

// Run executes all checks against production.
func Run(ctx context.Context, pool *pgxpool.Pool) (*Report, error) {
	var checks Checks

	nulls, err := countNullEmails(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("null check: %w", err)
	}
	checks.NullChecks = NullChecks{
		Status:         status(nulls),
		NullViolations: nulls,
		Details:        map[string]int{"customers.email": nulls},
	}

	duplicates, err := countDuplicateEmails(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	checks.DuplicateChecks = DuplicateChecks{
		Status:          status(duplicates),
		DuplicatesFound: duplicates,
	}

	orphans, err := countOrphanTransactions(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("referential integrity check: %w", err)
	}
	checks.ReferentialIntegrity = ReferentialIntegrity{
		Status:        status(orphans),
		OrphanRecords: orphans,
	}

	mismatches, err := countLineTotalMismatches(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("consistency check: %w", err)
	}
	checks.DataConsistency = DataConsistency{
		Status:     status(mismatches),
		Mismatches: mismatches,
	}

	report := NewReport(checks)
	logging.Info().
		Int("violations", checks.Violations()).
		Int("score", report.OverallQualityScore).
		Str("grade", report.QualityGrade).
		Msg("Quality checks complete")
	return report, nil
}

// Write writes the report as indented JSON to dir.
func (r *Report) Write(dir string) error {
	return pipeline.WriteJSON(dir, ReportFile, r)
}

func status(violations int) string {
	if violations == 0 {
		return StatusPassed
	}
	return StatusFailed
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func countNullEmails(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	sql, args, err := builder().
		Select("COUNT(*)").
		From("production.customers").
		Where("email IS NULL").
		ToSql()
	if err != nil {
		return 0, err
	}
	return queryCount(ctx, pool, sql, args...)
}

func countDuplicateEmails(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	return queryCount(ctx, pool, `
        SELECT COUNT(*) FROM (
            SELECT email FROM production.customers
            WHERE email IS NOT NULL
            GROUP BY email HAVING COUNT(*) > 1
        ) duplicates`)
}

func countOrphanTransactions(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	sql, args, err := builder().
		Select("COUNT(*)").
		From("production.transactions t").
		LeftJoin("production.customers c ON t.customer_id = c.customer_id").
		Where("c.customer_id IS NULL").
		ToSql()
	if err != nil {
		return 0, err
	}
	return queryCount(ctx, pool, sql, args...)
}

func countLineTotalMismatches(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	sql, args, err := builder().
		Select("COUNT(*)").
		From("production.transaction_items").
		Where("ABS(line_total - (quantity * unit_price * (1 - discount_percentage / 100))) > 0.01").
		ToSql()
	if err != nil {
		return 0, err
	}
	return queryCount(ctx, pool, sql, args...)
}

func queryCount(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (int, error) {
	var count int
	if err := pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
