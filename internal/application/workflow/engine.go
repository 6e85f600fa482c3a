package workflow

import (
	"context"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

// TransitionCommand is one workflow event sent by an actor
type TransitionCommand struct {
	Trigger domainwf.Trigger
	Notes   string
	Reason  string
	Payload map[string]interface{}
}

// Engine is the only component allowed to change a requisition's status
type Engine interface {
	// AttemptTransition loads the requisition, decides the transition for
	// actor and, when accepted, persists the new status together with one
	// history record. It returns the requisition with its history.
	AttemptTransition(ctx context.Context, requisitionID int64, actor *entity.User, cmd TransitionCommand) (*entity.Requisition, error)

	// LoadRequisitionWithHistory returns the requisition with its audit trail
	LoadRequisitionWithHistory(ctx context.Context, requisitionID int64) (*entity.Requisition, error)

	// AvailableTriggers lists the triggers actor could fire on requisition now
	AvailableTriggers(requisition *entity.Requisition, actor *entity.User) []domainwf.Trigger
}
