package permission

import (
	"fmt"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// Verdict explains a single permission check
type Verdict struct {
	Allowed bool
	Rule    *Rule
	Reason  string
}

// Ability is the materialized rule set of one actor at one point in time.
// It is immutable and safe for concurrent use.
type Ability struct {
	actorID string
	rules   []Rule
}

// NewAbility creates an ability from an ordered rule list
func NewAbility(actorID string, rules []Rule) *Ability {
	return &Ability{
		actorID: actorID,
		rules:   append([]Rule(nil), rules...),
	}
}

// Can reports whether the actor may perform action on subject
func (a *Ability) Can(action Action, subject Subject) bool {
	return a.Explain(action, subject).Allowed
}

// Cannot is the negation of Can
func (a *Ability) Cannot(action Action, subject Subject) bool {
	return !a.Can(action, subject)
}

// Explain evaluates rules in declaration order; the first matching rule
// decides. No match is an implicit deny.
func (a *Ability) Explain(action Action, subject Subject) Verdict {
	if a == nil || subject == nil {
		return Verdict{Reason: "no ability or subject"}
	}

	for i := range a.rules {
		rule := a.rules[i]
		if !rule.matches(action, subject) {
			continue
		}
		return Verdict{
			Allowed: rule.Effect == EffectAllow,
			Rule:    &rule,
			Reason:  fmt.Sprintf("%s by rule %q", rule.Effect, rule.Description),
		}
	}

	return Verdict{
		Reason: fmt.Sprintf("no rule allows %s on %s", action, subject.SubjectType()),
	}
}

// ActorID returns the id of the actor the ability was built for
func (a *Ability) ActorID() string {
	if a == nil {
		return ""
	}
	return a.actorID
}

// Rules returns a copy of the rule list
func (a *Ability) Rules() []Rule {
	if a == nil {
		return nil
	}
	return append([]Rule(nil), a.rules...)
}

// RuleView is the serializable form of a rule
type RuleView struct {
	Action      Action             `json:"action"`
	Subject     entity.SubjectType `json:"subject"`
	Conditional bool               `json:"conditional"`
	Effect      string             `json:"effect"`
	Description string             `json:"description"`
}

// Views returns the rules in a form suitable for clients
func (a *Ability) Views() []RuleView {
	rules := a.Rules()
	views := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, RuleView{
			Action:      r.Action,
			Subject:     r.Subject,
			Conditional: r.Condition != nil,
			Effect:      r.Effect.String(),
			Description: r.Description,
		})
	}
	return views
}
