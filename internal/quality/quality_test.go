//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package quality

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		violations int
		want       int
	}{
		{0, 100},
		{1, 99},
		{50, 50},
		{100, 0},
		{150, 0},
	}

	for _, tt := range tests {
		if got := Score(tt.violations); got != tt.want {
			t.Errorf("Score(%d) = %d, want %d", tt.violations, got, tt.want)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A"},
		{90, "A"},
		{89, "B"},
		{80, "B"},
		{79, "C"},
		{70, "C"},
		{69, "D"},
		{60, "D"},
		{59, "F"},
		{0, "F"},
	}

	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestChecksViolations(t *testing.T) {
	checks := Checks{
		NullChecks:           NullChecks{NullViolations: 2},
		DuplicateChecks:      DuplicateChecks{DuplicatesFound: 3},
		ReferentialIntegrity: ReferentialIntegrity{OrphanRecords: 5},
		DataConsistency:      DataConsistency{Mismatches: 1},
	}
	if got := checks.Violations(); got != 11 {
		t.Errorf("Violations() = %d, want 11", got)
	}
}

func TestNewReportClean(t *testing.T) {
	r := NewReport(Checks{})
	if r.OverallQualityScore != 100 {
		t.Errorf("score = %d, want 100", r.OverallQualityScore)
	}
	if r.QualityGrade != "A" {
		t.Errorf("grade = %q, want A", r.QualityGrade)
	}
	if r.CheckTimestamp.IsZero() {
		t.Error("check_timestamp not set")
	}
}

func TestNewReportDegraded(t *testing.T) {
	r := NewReport(Checks{
		ReferentialIntegrity: ReferentialIntegrity{OrphanRecords: 25},
	})
	if r.OverallQualityScore != 75 {
		t.Errorf("score = %d, want 75", r.OverallQualityScore)
	}
	if r.QualityGrade != "C" {
		t.Errorf("grade = %q, want C", r.QualityGrade)
	}
}

func TestStatus(t *testing.T) {
	if status(0) != StatusPassed {
		t.Errorf("status(0) = %q", status(0))
	}
	if status(1) != StatusFailed {
		t.Errorf("status(1) = %q", status(1))
	}
}
