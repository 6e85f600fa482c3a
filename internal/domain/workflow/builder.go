package workflow

import (
	"fmt"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx *Context) GuardResult

// EffectFunc mutates a requisition copy when a transition is accepted
type EffectFunc func(ctx *Context, r *entity.Requisition)

// Builder builds a workflow definition
type Builder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// OnEntry registers an effect applied when the state is entered
	OnEntry(state State, effect EffectFunc) Builder

	// OnTransition registers an effect applied on every accepted transition,
	// before the entry effect of the target
	OnTransition(effect EffectFunc) Builder

	// Build creates an immutable definition
	Build() *Definition
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard condition passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	trigger Trigger
	toState State
	guard   GuardFunc
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState   State
	transitions []transition
}

// builder implements Builder
type builder struct {
	configurations map[State]*stateConfig
	entryEffects   map[State][]EffectFunc
	anyEffects     []EffectFunc
}

// Definition is the static table of states, triggers, guards and effects.
// It holds no per-requisition state.
type Definition struct {
	configurations map[State]*stateConfig
	entryEffects   map[State][]EffectFunc
	anyEffects     []EffectFunc
}

// NewBuilder creates a new workflow builder
func NewBuilder() Builder {
	return &builder{
		configurations: make(map[State]*stateConfig),
		entryEffects:   make(map[State][]EffectFunc),
	}
}

// Configure returns a state configuration for the given state
func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{fromState: state}
		b.configurations[state] = config
	}

	return config
}

// OnEntry registers an effect applied when the state is entered
func (b *builder) OnEntry(state State, effect EffectFunc) Builder {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	b.entryEffects[state] = append(b.entryEffects[state], effect)
	return b
}

// OnTransition registers an effect applied on every accepted transition
func (b *builder) OnTransition(effect EffectFunc) Builder {
	b.anyEffects = append(b.anyEffects, effect)
	return b
}

// Build creates an immutable definition
func (b *builder) Build() *Definition {
	// Deep copy configurations so later builder calls cannot leak in
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: append([]transition(nil), config.transitions...),
		}
	}

	effectsCopy := make(map[State][]EffectFunc, len(b.entryEffects))
	for state, effects := range b.entryEffects {
		effectsCopy[state] = append([]EffectFunc(nil), effects...)
	}

	return &Definition{
		configurations: configsCopy,
		entryEffects:   effectsCopy,
		anyEffects:     append([]EffectFunc(nil), b.anyEffects...),
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard condition passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions = append(c.transitions, transition{
		trigger: trigger,
		toState: toState,
		guard:   guard,
	})

	return c
}

// Evaluate walks the transitions of state in declaration order. The first
// transition for trigger whose guard passes decides the target. Otherwise the
// state is returned unchanged.
func (d *Definition) Evaluate(state State, trigger Trigger, ctx *Context) Decision {
	decision := Decision{
		From:    state,
		To:      state,
		Trigger: trigger,
	}

	config, exists := d.configurations[state]
	if !exists {
		decision.Trace = append(decision.Trace, GuardTrace{
			Trigger: trigger,
			Reason:  fmt.Sprintf("state %s accepts no triggers", state),
		})
		return decision
	}

	matched := false
	for _, t := range config.transitions {
		if t.trigger != trigger {
			continue
		}
		matched = true

		result := GuardResult{Allowed: true, Reason: "unguarded"}
		if t.guard != nil {
			result = t.guard(ctx)
		}

		decision.Trace = append(decision.Trace, GuardTrace{
			Trigger: trigger,
			Target:  t.toState,
			Allowed: result.Allowed,
			Reason:  result.Reason,
		})

		if result.Allowed {
			decision.To = t.toState
			decision.Changed = true
			decision.Requisition = d.applyEffects(t.toState, ctx)
			return decision
		}
	}

	if !matched {
		decision.Trace = append(decision.Trace, GuardTrace{
			Trigger: trigger,
			Reason:  fmt.Sprintf("no %s transition from state %s", trigger, state),
		})
	}

	return decision
}

// applyEffects runs the effects on a copy of the context requisition
func (d *Definition) applyEffects(target State, ctx *Context) *entity.Requisition {
	if ctx == nil || ctx.Requisition == nil {
		return nil
	}

	r := ctx.Requisition.Clone()
	r.Status = target.String()

	for _, effect := range d.anyEffects {
		effect(ctx, r)
	}
	for _, effect := range d.entryEffects[target] {
		effect(ctx, r)
	}

	return r
}

// PermittedTriggers returns all triggers that have an edge out of state
func (d *Definition) PermittedTriggers(state State) []Trigger {
	config, exists := d.configurations[state]
	if !exists {
		return []Trigger{}
	}

	seen := make(map[Trigger]bool, len(config.transitions))
	triggers := make([]Trigger, 0, len(config.transitions))
	for _, t := range config.transitions {
		if seen[t.trigger] {
			continue
		}
		seen[t.trigger] = true
		triggers = append(triggers, t.trigger)
	}

	return triggers
}

// AvailableTriggers returns the triggers that would change state for ctx
func (d *Definition) AvailableTriggers(state State, ctx *Context) []Trigger {
	var available []Trigger
	for _, trigger := range d.PermittedTriggers(state) {
		if d.Evaluate(state, trigger, ctx).Changed {
			available = append(available, trigger)
		}
	}
	return available
}

// Verify interface compliance
var _ Evaluator = (*Definition)(nil)
