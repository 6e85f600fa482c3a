package workflow

import (
	"fmt"
	"time"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
)

// Context is everything guards and effects may look at. It is a snapshot for
// one evaluation and is never mutated by the evaluator.
type Context struct {
	Actor       *entity.User
	Ability     *permission.Ability
	Requisition *entity.Requisition
	Now         time.Time
	Notes       string
	Reason      string
}

// GuardResult is the outcome of a guard evaluation
type GuardResult struct {
	Allowed bool
	Reason  string
}

// GuardTrace records one guard evaluated while deciding a transition
type GuardTrace struct {
	Trigger Trigger
	Target  State
	Allowed bool
	Reason  string
}

// Decision is the result of evaluating a trigger against a state
type Decision struct {
	From    State
	To      State
	Trigger Trigger
	Changed bool
	Trace   []GuardTrace

	// Requisition is a copy of the context snapshot with the entry effects
	// of the target state applied. Nil when nothing changed.
	Requisition *entity.Requisition
}

// Err explains why the decision did not change state, or returns nil
func (d Decision) Err() error {
	if d.Changed {
		return nil
	}
	for _, t := range d.Trace {
		if t.Target != "" {
			return fmt.Errorf("%w: trigger %s from state %s: %s", ErrGuardFailed, d.Trigger, d.From, d.lastReason())
		}
	}
	return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, d.Trigger, d.From)
}

func (d Decision) lastReason() string {
	if len(d.Trace) == 0 {
		return ""
	}
	return d.Trace[len(d.Trace)-1].Reason
}

// Evaluator decides transitions. Implementations are stateless: the same
// state, trigger and context always produce the same decision.
type Evaluator interface {
	// Evaluate returns the decision for firing trigger from state
	Evaluate(state State, trigger Trigger, ctx *Context) Decision

	// PermittedTriggers returns the triggers the state has edges for,
	// without evaluating guards
	PermittedTriggers(state State) []Trigger

	// AvailableTriggers returns the triggers whose guards pass for ctx
	AvailableTriggers(state State, ctx *Context) []Trigger
}
