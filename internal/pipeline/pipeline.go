package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/db"
	"github.com/pgEdge/retail-etl/internal/logging"
)

// Pipeline executes a set of stages in dependency order. A stage depends
// on every stage that produces one of its input tables; tables with no
// producer are assumed to pre-exist in the database.
type Pipeline struct {
	stages     []Stage
	summaryDir string
}

// New creates an empty pipeline writing run summaries to summaryDir.
// An empty summaryDir disables summary files (results are still logged).
func New(summaryDir string) *Pipeline {
	return &Pipeline{summaryDir: summaryDir}
}

// Add appends stages to the pipeline.
func (p *Pipeline) Add(stages ...Stage) {
	p.stages = append(p.stages, stages...)
}

// Order returns the stages sorted topologically by table dependencies.
// It fails on dependency cycles and on tables claimed by two producers.
func (p *Pipeline) Order() ([]Stage, error) {
	producers := make(map[string]int, len(p.stages))
	for i, s := range p.stages {
		for _, table := range s.Outputs() {
			if prev, ok := producers[table]; ok {
				return nil, fmt.Errorf("table %s produced by both %s and %s",
					table, p.stages[prev].Name(), s.Name())
			}
			producers[table] = i
		}
	}

	// deps[i] = set of stage indexes stage i waits on
	deps := make([]map[int]bool, len(p.stages))
	for i, s := range p.stages {
		deps[i] = make(map[int]bool)
		for _, table := range s.Inputs() {
			if j, ok := producers[table]; ok && j != i {
				deps[i][j] = true
			}
		}
	}

	// Kahn's algorithm, scanning in insertion order so independent stages
	// keep a stable order across runs.
	done := make([]bool, len(p.stages))
	ordered := make([]Stage, 0, len(p.stages))
	for len(ordered) < len(p.stages) {
		progressed := false
		for i, s := range p.stages {
			if done[i] {
				continue
			}
			ready := true
			for j := range deps[i] {
				if !done[j] {
					ready = false
					break
				}
			}
			if ready {
				done[i] = true
				ordered = append(ordered, s)
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle among pipeline stages")
		}
	}
	return ordered, nil
}

// Run executes all stages in dependency order under the pipeline run
// lock. Each stage runs to completion before the next starts; the first
// stage error aborts the run. The summary is written even on failure,
// annotated with the error, and the error is returned so the process
// exits non-zero.
func (p *Pipeline) Run(ctx context.Context, pool *pgxpool.Pool) (*RunSummary, error) {
	ordered, err := p.Order()
	if err != nil {
		return nil, err
	}

	lock, err := db.AcquireRunLock(ctx, pool)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	summary := NewRunSummary()
	logging.Info().
		Str("run_id", summary.RunID).
		Int("stages", len(ordered)).
		Msg("Starting pipeline run")

	var runErr error
	for _, stage := range ordered {
		logging.Info().Str("stage", stage.Name()).Msg("Running stage")

		result, err := stage.Run(ctx, pool)
		if result != nil {
			summary.Stages = append(summary.Stages, result)
		}
		if err != nil {
			logging.Error().Err(err).Str("stage", stage.Name()).Msg("Stage failed")
			runErr = fmt.Errorf("stage %s: %w", stage.Name(), err)
			break
		}

		logging.Info().
			Str("stage", stage.Name()).
			Dur("duration", result.Duration()).
			Msg("Stage complete")
	}

	summary.Finish(runErr)

	if p.summaryDir != "" {
		name := fmt.Sprintf("run_%s.json", summary.RunID)
		if err := WriteJSON(p.summaryDir, name, summary); err != nil {
			logging.Warn().Err(err).Msg("Failed to write run summary")
		}
	}

	return summary, runErr
}
