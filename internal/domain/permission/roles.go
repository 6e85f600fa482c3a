package permission

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// ruleTemplate materializes one rule for a concrete actor
type ruleTemplate func(actor *entity.User) Rule

// roleOrder fixes the order in which role rules are appended
var roleOrder = []entity.Role{
	entity.RoleRequester,
	entity.RolePurchasing,
	entity.RoleManagement,
	entity.RoleAdministrator,
}

var roleRules = map[entity.Role][]ruleTemplate{
	entity.RoleRequester: {
		allow(ActionCreate, entity.SubjectRequisition, "requester creates requisitions"),
		ownRequisition(ActionRead, "requester reads own requisitions"),
		ownHistory("requester reads history of own requisitions"),
		ownDraft(ActionUpdate, "requester edits own draft"),
		ownDraft(ActionSubmit, "requester submits own draft"),
		allow(ActionRead, entity.SubjectProject, "requester reads projects"),
	},
	entity.RolePurchasing: {
		allow(ActionRead, entity.SubjectRequisition, "purchasing reads requisitions"),
		allow(ActionRead, entity.SubjectHistory, "purchasing reads history"),
		allow(ActionRead, entity.SubjectProject, "purchasing reads projects"),
		allow(ActionCreate, entity.SubjectProject, "purchasing creates projects"),
		allow(ActionUpdate, entity.SubjectProject, "purchasing updates projects"),
		inStatus(ActionApprovePurchasing, entity.StatusPendingPurchasing, "purchasing approves pending purchasing"),
		inStatus(ActionReject, entity.StatusPendingPurchasing, "purchasing rejects pending purchasing"),
		inStatus(ActionExecute, entity.StatusApproved, "purchasing executes approved"),
	},
	entity.RoleManagement: {
		allow(ActionRead, entity.SubjectRequisition, "management reads requisitions"),
		allow(ActionRead, entity.SubjectHistory, "management reads history"),
		allow(ActionRead, entity.SubjectProject, "management reads projects"),
		withinApprovalLimit("management approves pending management within limit"),
		inStatus(ActionReject, entity.StatusPendingManagement, "management rejects pending management"),
	},
	entity.RoleAdministrator: {
		allow(ActionManage, entity.SubjectAll, "administrator manages everything"),
	},
}

func allow(action Action, subject entity.SubjectType, desc string) ruleTemplate {
	return func(*entity.User) Rule {
		return Rule{Action: action, Subject: subject, Effect: EffectAllow, Description: desc}
	}
}

func ownRequisition(action Action, desc string) ruleTemplate {
	return func(actor *entity.User) Rule {
		actorID := actor.ID
		return Rule{
			Action:  action,
			Subject: entity.SubjectRequisition,
			Condition: onRequisition(func(r *entity.Requisition) bool {
				return r.RequesterID == actorID
			}),
			Description: desc,
		}
	}
}

func ownHistory(desc string) ruleTemplate {
	return func(actor *entity.User) Rule {
		actorID := actor.ID
		return Rule{
			Action:  ActionRead,
			Subject: entity.SubjectHistory,
			Condition: onHistory(func(r *entity.Requisition) bool {
				return r.RequesterID == actorID
			}),
			Description: desc,
		}
	}
}

func ownDraft(action Action, desc string) ruleTemplate {
	return func(actor *entity.User) Rule {
		actorID := actor.ID
		return Rule{
			Action:  action,
			Subject: entity.SubjectRequisition,
			Condition: onRequisition(func(r *entity.Requisition) bool {
				return r.RequesterID == actorID && r.Status == entity.StatusDraft
			}),
			Description: desc,
		}
	}
}

func inStatus(action Action, status string, desc string) ruleTemplate {
	return func(*entity.User) Rule {
		return Rule{
			Action:  action,
			Subject: entity.SubjectRequisition,
			Condition: onRequisition(func(r *entity.Requisition) bool {
				return r.Status == status
			}),
			Description: desc,
		}
	}
}

// withinApprovalLimit treats a missing approval limit as zero
func withinApprovalLimit(desc string) ruleTemplate {
	return func(actor *entity.User) Rule {
		limit := decimal.Zero
		if actor.ApprovalLimit != nil {
			limit = *actor.ApprovalLimit
		}
		return Rule{
			Action:  ActionApproveManagement,
			Subject: entity.SubjectRequisition,
			Condition: onRequisition(func(r *entity.Requisition) bool {
				return r.Status == entity.StatusPendingManagement && r.Total.LessThanOrEqual(limit)
			}),
			Description: desc,
		}
	}
}
