// Package pipeline defines the batch stage contract and the driver that
// orders and executes stages over their declared table dependencies.
package pipeline

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stage is a single batch transformation over the database. A stage reads
// the full current snapshot of its input tables and rewrites its output
// tables inside one transaction.
type Stage interface {
	// Name returns the stage name used in logs and summaries.
	Name() string

	// Inputs returns the fully qualified tables the stage reads.
	Inputs() []string

	// Outputs returns the fully qualified tables the stage writes.
	// A table may have at most one producing stage per pipeline.
	Outputs() []string

	// Run executes the stage. The returned result is recorded in the run
	// summary even when err is non-nil, so partially computed counts
	// survive a failed run.
	Run(ctx context.Context, pool *pgxpool.Pool) (*StageResult, error)
}

// TableCounts records per-table row accounting for one stage run.
// Filtered is always Input - Output; RejectedReasons breaks Filtered
// down by the rule or lookup that excluded each row.
type TableCounts struct {
	Input           int            `json:"input"`
	Output          int            `json:"output"`
	Filtered        int            `json:"filtered"`
	RejectedReasons map[string]int `json:"rejected_reasons,omitempty"`

	// Details carries stage-specific counters, e.g. SCD2 version
	// bookkeeping (versions_closed, unchanged).
	Details map[string]int `json:"details,omitempty"`
}

// NewTableCounts builds counts from input/output totals.
func NewTableCounts(input, output int) *TableCounts {
	return &TableCounts{
		Input:    input,
		Output:   output,
		Filtered: input - output,
	}
}

// Reject records one excluded row under the given reason.
func (c *TableCounts) Reject(reason string) {
	if c.RejectedReasons == nil {
		c.RejectedReasons = make(map[string]int)
	}
	c.RejectedReasons[reason]++
}

// StageResult is the structured outcome of one stage run.
type StageResult struct {
	Stage      string                  `json:"stage"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Tables     map[string]*TableCounts `json:"tables,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// NewStageResult starts a result for the named stage.
func NewStageResult(name string) *StageResult {
	return &StageResult{
		Stage:     name,
		StartedAt: time.Now().UTC(),
		Tables:    make(map[string]*TableCounts),
	}
}

// Finish stamps the completion time and records err, if any.
func (r *StageResult) Finish(err error) *StageResult {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Duration returns the stage's wall-clock duration.
func (r *StageResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
