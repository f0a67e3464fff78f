package plugin

// State is the initialization state of a record.
type State int32

const (
	// Pending indicates the record has not been picked up by the scheduler.
	Pending State = iota
	// Waiting indicates the record is blocked on its dependencies.
	Waiting
	// Running indicates the notify call for the record is in progress.
	Running
	// Done indicates the record finished initializing.
	Done
	// Failed indicates the wait timed out or the notify call failed.
	Failed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
