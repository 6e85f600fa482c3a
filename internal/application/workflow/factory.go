package workflow

import (
	"fmt"
	"time"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

// NewRequisitionWorkflow builds the requisition approval table. The result
// is immutable and shared by every evaluation.
func NewRequisitionWorkflow() *domainwf.Definition {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		PermitIf(domainwf.TriggerSubmit, domainwf.StatePendingPurchasing, can(permission.ActionSubmit))

	builder.Configure(domainwf.StatePendingPurchasing).
		PermitIf(domainwf.TriggerApprovePurchasing, domainwf.StatePendingManagement, can(permission.ActionApprovePurchasing)).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, can(permission.ActionReject))

	// The approval limit is part of the management rule condition
	builder.Configure(domainwf.StatePendingManagement).
		PermitIf(domainwf.TriggerApproveManagement, domainwf.StateApproved, can(permission.ActionApproveManagement)).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, can(permission.ActionReject))

	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerExecute, domainwf.StateCompleted, can(permission.ActionExecute))

	// REJECTED and COMPLETED are terminal states

	builder.OnTransition(touch)
	builder.OnEntry(domainwf.StateApproved, func(c *domainwf.Context, r *entity.Requisition) {
		r.ApprovedAt = timeRef(c)
	})
	builder.OnEntry(domainwf.StateRejected, func(c *domainwf.Context, r *entity.Requisition) {
		r.RejectedAt = timeRef(c)
		r.RejectionReason = c.Reason
	})
	builder.OnEntry(domainwf.StateCompleted, func(c *domainwf.Context, r *entity.Requisition) {
		r.CompletedAt = timeRef(c)
	})

	return builder.Build()
}

// can guards a transition with the actor's ability on the requisition snapshot
func can(action permission.Action) domainwf.GuardFunc {
	return func(c *domainwf.Context) domainwf.GuardResult {
		if c == nil || c.Requisition == nil {
			return domainwf.GuardResult{Reason: "no requisition to evaluate"}
		}
		if c.Ability == nil {
			return domainwf.GuardResult{Reason: "no ability"}
		}

		verdict := c.Ability.Explain(action, c.Requisition)
		if verdict.Allowed {
			return domainwf.GuardResult{Allowed: true, Reason: verdict.Reason}
		}
		return domainwf.GuardResult{Reason: fmt.Sprintf("cannot %s: %s", action, verdict.Reason)}
	}
}

func touch(c *domainwf.Context, r *entity.Requisition) {
	r.UpdatedAt = c.Now
	if c.Notes != "" {
		r.Notes = c.Notes
	}
}

func timeRef(c *domainwf.Context) *time.Time {
	t := c.Now
	return &t
}
