package journals

import "github.com/sao-erp/sao-erp/internal/shared"

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPosted   Status = "POSTED"
	StatusReversed Status = "REVERSED"

	// statusDeleted is the terminal soft-delete state; it is never persisted
	// in the status column, only as deleted_at.
	statusDeleted Status = "DELETED"
)

var transitions = shared.Transitions[Status]{
	StatusDraft:  {StatusPosted, statusDeleted},
	StatusPosted: {StatusReversed},
}

// CanTransition reports whether an entry may move between the given states.
func CanTransition(from, to Status) bool {
	return transitions.CanTransition(from, to)
}
