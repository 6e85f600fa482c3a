package workflow

import "github.com/garyjia/purchase-requisition/internal/domain/entity"

// State represents a workflow state in the requisition lifecycle
type State string

const (
	StateDraft             State = entity.StatusDraft
	StatePendingPurchasing State = entity.StatusPendingPurchasing
	StatePendingManagement State = entity.StatusPendingManagement
	StateApproved          State = entity.StatusApproved
	StateRejected          State = entity.StatusRejected
	StateCompleted         State = entity.StatusCompleted
)

var validStates = map[State]bool{
	StateDraft:             true,
	StatePendingPurchasing: true,
	StatePendingManagement: true,
	StateApproved:          true,
	StateRejected:          true,
	StateCompleted:         true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
