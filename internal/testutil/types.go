package testutil

import "time"

// ExecutionRecord holds the start and end times of one plugin's
// initialization, plus the global order in which initializations started.
type ExecutionRecord struct {
	Order int
	Start time.Time
	End   time.Time
}

// TB is the part of testing.TB the helpers need. Both *testing.T and
// *rapid.T satisfy it.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}
