package suggest

// State is the interaction state of a field session.
type State int

const (
	// Idle is the initial state and the state after a programmatic value change.
	Idle State = iota
	// Dirty means the user is typing.
	Dirty
	// Searching means a query fired and its results are, or will be, shown.
	Searching
	// Selected means the user picked a suggestion.
	Selected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Searching:
		return "searching"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}
