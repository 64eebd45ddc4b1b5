package suggest

import "github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"

// EventKind identifies an output event of a field session.
type EventKind int

const (
	SuggestionsChanged EventKind = iota + 1
	LoadingChanged
	DropdownOpenChanged
)

func (k EventKind) String() string {
	switch k {
	case SuggestionsChanged:
		return "suggestions"
	case LoadingChanged:
		return "loading"
	case DropdownOpenChanged:
		return "dropdown"
	default:
		return "unknown"
	}
}

// Event is emitted by a field session whenever something the UI renders changes.
// Only the field matching Kind is meaningful.
type Event struct {
	SessionID   string
	FieldID     string
	Kind        EventKind
	Suggestions []models.Suggestion
	Loading     bool
	Open        bool
}

// EventHandler receives the events of one session, in order, on the session's
// goroutine. It must not call back into the same session synchronously.
type EventHandler func(Event)
