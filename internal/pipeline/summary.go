package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunSummary aggregates the per-stage results of one pipeline run.
type RunSummary struct {
	RunID                 string         `json:"run_id"`
	StartedAt             time.Time      `json:"started_at"`
	FinishedAt            time.Time      `json:"finished_at"`
	Stages                []*StageResult `json:"stages"`
	TotalExecutionSeconds float64        `json:"total_execution_seconds"`
	Error                 string         `json:"error,omitempty"`
}

// NewRunSummary starts a summary with a fresh run id.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps completion time and total duration, recording err if any.
func (s *RunSummary) Finish(err error) *RunSummary {
	s.FinishedAt = time.Now().UTC()
	s.TotalExecutionSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// WriteJSON writes v as indented JSON to dir/name, creating dir if needed.
func WriteJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}
