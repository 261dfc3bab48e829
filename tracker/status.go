package tracker

// Status is an order's lifecycle state. The happy path runs
// confirmed → preparing → ready → completed; cancelled is reachable from any
// non-terminal state. No transition goes backward.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Step maps a status to its progress-bar ordinal (confirmed=1 … completed=4).
// Cancelled has no ordinal and reports ok=false; it renders as its own view.
func (s Status) Step() (step int, ok bool) {
	switch s {
	case StatusConfirmed:
		return 1, true
	case StatusPreparing:
		return 2, true
	case StatusReady:
		return 3, true
	case StatusCompleted:
		return 4, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the five lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move: forward along the
// happy path, or to cancelled from any non-terminal state. Terminal states
// admit nothing.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromStep, _ := from.Step()
	toStep, ok := to.Step()
	if !ok {
		return false
	}
	return toStep > fromStep
}
