package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/purchase-requisition/internal/application/dispatcher"
	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/event"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	requisitionRepo port.RequisitionRepository
	historyRepo     port.HistoryRepository
	txManager       port.TransactionManager
	definition      domainwf.Evaluator
	dispatcher      dispatcher.Dispatcher
	logger          Logger
	clock           func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the dispatcher notified after each committed transition
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the logger that receives decision traces
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// WithDefinition replaces the requisition workflow table
func WithDefinition(def domainwf.Evaluator) EngineOption {
	return func(e *engineImpl) {
		e.definition = def
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requisitionRepo port.RequisitionRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requisitionRepo: requisitionRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		definition:      NewRequisitionWorkflow(),
		clock:           time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AttemptTransition implements Engine
func (e *engineImpl) AttemptTransition(ctx context.Context, requisitionID int64, actor *entity.User, cmd TransitionCommand) (*entity.Requisition, error) {
	if !actor.IsAuthenticated() {
		e.logInfo("Transition refused for unauthenticated actor",
			"requisition_id", requisitionID,
			"trigger", cmd.Trigger,
		)
		return nil, ErrUnauthenticated
	}
	if !cmd.Trigger.IsValid() {
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, cmd.Trigger)
	}

	var (
		decision domainwf.Decision
		result   *entity.Requisition
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.requisitionRepo.GetByID(txCtx, requisitionID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}

		ability := permission.Evaluate(actor)
		// An actor who cannot read the requisition learns nothing about it
		if ability.Cannot(permission.ActionRead, current) {
			return ErrNotFound
		}

		state := domainwf.State(current.Status)
		if !state.IsValid() {
			return fmt.Errorf("%w: requisition %d has unknown status %q", ErrCorruptState, requisitionID, current.Status)
		}

		decision = e.definition.Evaluate(state, cmd.Trigger, &domainwf.Context{
			Actor:       actor,
			Ability:     ability,
			Requisition: current,
			Now:         e.clock(),
			Notes:       cmd.Notes,
			Reason:      rejectionReason(cmd),
		})
		e.logDecision(requisitionID, actor, decision)

		if !decision.Changed {
			return fmt.Errorf("%w: %w", ErrInvalidTransition, decision.Err())
		}

		updated := decision.Requisition
		if err := e.requisitionRepo.UpdateTransition(txCtx, updated, current.Status); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
			}
			return err
		}

		record, err := e.historyRecord(actor, cmd, decision)
		if err != nil {
			return err
		}
		if err := e.historyRepo.Create(txCtx, record); err != nil {
			return err
		}

		// Read back inside the unit: a failed read rolls the transition back
		result, err = e.LoadRequisitionWithHistory(txCtx, requisitionID)
		return err
	})
	if err != nil {
		return nil, e.classify(requisitionID, cmd.Trigger, err)
	}

	e.dispatchStatusChanged(ctx, actor, decision)

	return result, nil
}

// LoadRequisitionWithHistory implements Engine
func (e *engineImpl) LoadRequisitionWithHistory(ctx context.Context, requisitionID int64) (*entity.Requisition, error) {
	r, err := e.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load requisition %d: %w", ErrPersistenceFailure, requisitionID, err)
	}
	if r == nil {
		return nil, ErrNotFound
	}

	history, err := e.historyRepo.ListByRequisitionID(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load history of %d: %w", ErrPersistenceFailure, requisitionID, err)
	}
	r.History = history

	return r, nil
}

// AvailableTriggers implements Engine
func (e *engineImpl) AvailableTriggers(requisition *entity.Requisition, actor *entity.User) []domainwf.Trigger {
	if requisition == nil {
		return nil
	}
	return e.definition.AvailableTriggers(domainwf.State(requisition.Status), &domainwf.Context{
		Actor:       actor,
		Ability:     permission.Evaluate(actor),
		Requisition: requisition,
		Now:         e.clock(),
	})
}

// classify maps errors from the write unit to error kinds. Anything that is
// not a domain outcome is a failed, rolled back write.
func (e *engineImpl) classify(requisitionID int64, trigger domainwf.Trigger, err error) error {
	switch {
	case errors.Is(err, ErrCorruptState):
		e.logError("Stored requisition is corrupt", "requisition_id", requisitionID, "trigger", trigger, "error", err)
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition):
		return err
	case errors.Is(err, ErrPersistenceFailure):
		e.logError("Transition rolled back", "requisition_id", requisitionID, "trigger", trigger, "error", err)
		return err
	default:
		e.logError("Transition rolled back", "requisition_id", requisitionID, "trigger", trigger, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
}

func (e *engineImpl) historyRecord(actor *entity.User, cmd TransitionCommand, d domainwf.Decision) (*entity.HistoryRecord, error) {
	payload := ""
	if len(cmd.Payload) > 0 {
		b, err := json.Marshal(cmd.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		payload = string(b)
	}

	return &entity.HistoryRecord{
		RequisitionID:  d.Requisition.ID,
		ActorID:        actor.ID,
		PreviousStatus: d.From.String(),
		NewStatus:      d.To.String(),
		EventType:      d.Trigger.String(),
		Description:    describe(actor, cmd, d),
		Payload:        payload,
		Timestamp:      d.Requisition.UpdatedAt,
	}, nil
}

// describe renders the human readable history line
func describe(actor *entity.User, cmd TransitionCommand, d domainwf.Decision) string {
	who := actor.Email
	if who == "" {
		who = actor.ID
	}

	var b strings.Builder
	switch d.To {
	case domainwf.StatePendingPurchasing:
		fmt.Fprintf(&b, "Submitted for purchasing review by %s", who)
	case domainwf.StatePendingManagement:
		fmt.Fprintf(&b, "Approved by purchasing (%s)", who)
	case domainwf.StateApproved:
		fmt.Fprintf(&b, "Approved by management (%s)", who)
	case domainwf.StateRejected:
		fmt.Fprintf(&b, "Rejected by %s: %s", who, d.Requisition.RejectionReason)
	case domainwf.StateCompleted:
		fmt.Fprintf(&b, "Purchase executed by %s", who)
	default:
		fmt.Fprintf(&b, "%s moved from %s to %s by %s", d.Trigger, d.From, d.To, who)
	}
	if cmd.Notes != "" {
		fmt.Fprintf(&b, ". Notes: %s", cmd.Notes)
	}
	return b.String()
}

// rejectionReason prefers the explicit reason, then payload["reason"]
func rejectionReason(cmd TransitionCommand) string {
	if cmd.Reason != "" {
		return cmd.Reason
	}
	if s, ok := cmd.Payload["reason"].(string); ok && s != "" {
		return s
	}
	if cmd.Trigger == domainwf.TriggerReject {
		return "no reason given"
	}
	return ""
}

func (e *engineImpl) logDecision(requisitionID int64, actor *entity.User, d domainwf.Decision) {
	guards := make([]string, 0, len(d.Trace))
	for _, g := range d.Trace {
		outcome := "fail"
		if g.Allowed {
			outcome = "pass"
		}
		target := g.Target.String()
		if target == "" {
			target = "-"
		}
		guards = append(guards, fmt.Sprintf("%s->%s %s (%s)", g.Trigger, target, outcome, g.Reason))
	}

	msg := "Transition accepted"
	if !d.Changed {
		msg = "Transition refused"
	}
	e.logInfo(msg,
		"requisition_id", requisitionID,
		"actor_id", actor.ID,
		"trigger", d.Trigger,
		"from", d.From,
		"to", d.To,
		"guards", guards,
	)
}

func (e *engineImpl) dispatchStatusChanged(ctx context.Context, actor *entity.User, d domainwf.Decision) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		"previous_status": d.From.String(),
		"new_status":      d.To.String(),
		"trigger":         d.Trigger.String(),
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeStatusChanged, d.Requisition.ID, actor.ID, payload))

	if follow := terminalEvent(d.To); follow != "" {
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(follow, d.Requisition.ID, actor.ID, payload))
	}
}

func terminalEvent(s domainwf.State) event.Type {
	switch s {
	case domainwf.StateApproved:
		return event.TypeRequisitionApproved
	case domainwf.StateRejected:
		return event.TypeRequisitionRejected
	case domainwf.StateCompleted:
		return event.TypeRequisitionCompleted
	}
	return ""
}

func (e *engineImpl) logInfo(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, keysAndValues...)
	}
}

func (e *engineImpl) logError(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, keysAndValues...)
	}
}

// Verify interface compliance
var _ Engine = (*engineImpl)(nil)
