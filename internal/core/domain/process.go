package domain

import "time"

// ProcessRecord is the history entry written when a process instance completes.
type ProcessRecord struct {
	// ProcessID identifies the process instance.
	ProcessID string

	// TaskName is the task definition name (may be empty for ad-hoc tasks).
	TaskName string

	// Title is the process title ("source --> [destinations]").
	Title string

	// StartedAt is when Begin was called.
	StartedAt time.Time

	// EndedAt is when the process reached completed.
	EndedAt time.Time

	// Processed is the number of records taken from the source.
	Processed int

	// InputErrors is the number of source failures (0 or 1).
	InputErrors int

	// OutputErrors is the number of per-destination publish failures.
	OutputErrors int

	// Aborted indicates the run was aborted by a caller.
	Aborted bool

	// LastError contains the last error message, if any.
	LastError string
}

// Duration returns how long the run took.
func (r ProcessRecord) Duration() time.Duration {
	if r.EndedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without any error and without abort.
func (r ProcessRecord) Succeeded() bool {
	return !r.Aborted && r.InputErrors == 0 && r.OutputErrors == 0
}
