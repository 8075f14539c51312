package warehouse

import "testing"

func TestSCDTableCountsReconcile(t *testing.T) {
	tests := []struct {
		name   string
		counts SCDCounts
	}{
		{name: "first load", counts: SCDCounts{Snapshot: 50, Inserted: 50}},
		{name: "idempotent rerun", counts: SCDCounts{Snapshot: 50, Unchanged: 50}},
		{name: "mixed changes", counts: SCDCounts{Snapshot: 50, Inserted: 5, Closed: 3, Unchanged: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scdTableCounts(tt.counts)

			if got.Input != tt.counts.Snapshot {
				t.Errorf("Input = %d, want %d", got.Input, tt.counts.Snapshot)
			}
			if got.Output != tt.counts.Snapshot {
				t.Errorf("Output = %d, want %d", got.Output, tt.counts.Snapshot)
			}
			if got.Filtered != got.Input-got.Output {
				t.Errorf("Filtered = %d, want Input - Output = %d", got.Filtered, got.Input-got.Output)
			}
			if got.Details["versions_written"] != tt.counts.Versions() {
				t.Errorf("versions_written = %d, want %d",
					got.Details["versions_written"], tt.counts.Versions())
			}
			if got.Details["new_keys"] != tt.counts.Inserted ||
				got.Details["versions_closed"] != tt.counts.Closed ||
				got.Details["unchanged"] != tt.counts.Unchanged {
				t.Errorf("Details = %v, want bookkeeping from %+v", got.Details, tt.counts)
			}
		})
	}
}
