package permission

import (
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// denyAll is the single rule held by anonymous or role-less actors
var denyAll = Rule{
	Action:      ActionManage,
	Subject:     entity.SubjectAll,
	Effect:      EffectDeny,
	Description: "unauthenticated actors can do nothing",
}

// Evaluate builds the Ability of an actor. It never fails: an absent,
// inactive or role-less actor gets an explicit deny-all ability.
func Evaluate(actor *entity.User) *Ability {
	if !actor.IsAuthenticated() {
		return NewAbility("", []Rule{denyAll})
	}

	var rules []Rule
	// Every held role contributes its rules, the administrator included, so
	// deny rules added later still compose with the allow-all rule.
	for _, role := range roleOrder {
		if !actor.HasRole(role) {
			continue
		}
		for _, tmpl := range roleRules[role] {
			rules = append(rules, tmpl(actor))
		}
	}

	if len(rules) == 0 {
		return NewAbility(actor.ID, []Rule{denyAll})
	}

	return NewAbility(actor.ID, rules)
}
