// Package permission computes what an actor may do to which subjects.
//
// Rules are plain data: (action, subject type, optional condition, effect).
// An Ability is the ordered rule set materialized for one actor; the first
// matching rule decides and no match means deny.
package permission

import (
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// Action is something an actor does to a subject
type Action string

const (
	// ActionManage subsumes every other action
	ActionManage            Action = "manage"
	ActionCreate            Action = "create"
	ActionRead              Action = "read"
	ActionUpdate            Action = "update"
	ActionSubmit            Action = "submit"
	ActionApprovePurchasing Action = "approve_purchasing"
	ActionApproveManagement Action = "approve_management"
	ActionReject            Action = "reject"
	ActionExecute           Action = "execute"
	ActionCancel            Action = "cancel"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// Subject is anything a rule can be checked against. Every subject carries
// its discriminant explicitly.
type Subject interface {
	SubjectType() entity.SubjectType
}

// typeSubject stands for "any instance of this type"
type typeSubject entity.SubjectType

func (t typeSubject) SubjectType() entity.SubjectType {
	return entity.SubjectType(t)
}

// TypeOf returns a subject that checks a permission against a whole type
// rather than an instance. Conditional rules match type-level checks without
// running their condition.
func TypeOf(t entity.SubjectType) Subject {
	return typeSubject(t)
}

func isTypeOnly(s Subject) bool {
	_, ok := s.(typeSubject)
	return ok
}

// historySubject is the history of one requisition
type historySubject struct {
	requisition *entity.Requisition
}

func (historySubject) SubjectType() entity.SubjectType {
	return entity.SubjectHistory
}

// HistoryOf returns the history of r as a subject, so history rules can
// look at the requisition it belongs to.
func HistoryOf(r *entity.Requisition) Subject {
	return historySubject{requisition: r}
}

// Effect is the outcome a matching rule produces
type Effect int

const (
	EffectAllow Effect = iota
	EffectDeny
)

// String returns the string representation of the effect
func (e Effect) String() string {
	if e == EffectDeny {
		return "deny"
	}
	return "allow"
}

// Condition is a predicate over the attributes of a subject instance
type Condition func(subject Subject) bool

// Rule grants or denies one action on one subject type
type Rule struct {
	Action      Action
	Subject     entity.SubjectType
	Condition   Condition
	Effect      Effect
	Description string
}

// matches reports whether the rule applies to the action and subject
func (r Rule) matches(action Action, subject Subject) bool {
	if r.Action != action && r.Action != ActionManage {
		return false
	}
	if r.Subject != subject.SubjectType() && r.Subject != entity.SubjectAll {
		return false
	}
	if r.Condition == nil || isTypeOnly(subject) {
		return true
	}
	return r.Condition(subject)
}

// onRequisition adapts a requisition predicate into a Condition. Other
// subject kinds never satisfy it.
func onRequisition(pred func(r *entity.Requisition) bool) Condition {
	return func(subject Subject) bool {
		r, ok := subject.(*entity.Requisition)
		if !ok || r == nil {
			return false
		}
		return pred(r)
	}
}

// onHistory adapts a requisition predicate into a Condition over the
// history of that requisition.
func onHistory(pred func(r *entity.Requisition) bool) Condition {
	return func(subject Subject) bool {
		h, ok := subject.(historySubject)
		if !ok || h.requisition == nil {
			return false
		}
		return pred(h.requisition)
	}
}
