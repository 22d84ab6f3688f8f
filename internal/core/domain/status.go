package domain

// Status is the lifecycle state of a process instance.
type Status string

const (
	// StatusSubmitted means the process exists but has not begun.
	StatusSubmitted Status = "submitted"
	// StatusWorking means the harvest loop is running.
	StatusWorking Status = "working"
	// StatusAborting means abort was requested and the loop has not yet exited.
	StatusAborting Status = "aborting"
	// StatusCompleted is terminal.
	StatusCompleted Status = "completed"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}
