package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/purchase-requisition/internal/application/dispatcher"
	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/event"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
	"github.com/garyjia/purchase-requisition/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRequisitionInput is the data a requester supplies for a new draft
type CreateRequisitionInput struct {
	Total     decimal.Decimal
	ProjectID *int64
	Notes     string
}

// UpdateDraftInput changes a draft. Nil fields are left unchanged.
type UpdateDraftInput struct {
	Total        *decimal.Decimal
	ProjectID    *int64
	ClearProject bool
	Notes        *string
}

// RequisitionService is the read and draft-editing surface around the
// workflow engine
type RequisitionService interface {
	Create(ctx context.Context, actor *entity.User, input CreateRequisitionInput) (*entity.Requisition, error)
	Get(ctx context.Context, actor *entity.User, id int64) (*entity.Requisition, error)
	List(ctx context.Context, actor *entity.User, filter port.RequisitionFilter) ([]*entity.Requisition, error)
	UpdateDraft(ctx context.Context, actor *entity.User, id int64, input UpdateDraftInput) (*entity.Requisition, error)
	Transition(ctx context.Context, actor *entity.User, id int64, cmd workflow.TransitionCommand) (*entity.Requisition, error)
	AvailableTriggers(actor *entity.User, r *entity.Requisition) []domainwf.Trigger
}

type requisitionServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	historyRepo     port.HistoryRepository
	projectRepo     port.ProjectRepository
	txManager       port.TransactionManager
	engine          workflow.Engine
	dispatcher      dispatcher.Dispatcher
	logger          Logger
	clock           func() time.Time
}

// NewRequisitionService creates a new RequisitionService. The dispatcher may be nil.
func NewRequisitionService(
	requisitionRepo port.RequisitionRepository,
	historyRepo port.HistoryRepository,
	projectRepo port.ProjectRepository,
	txManager port.TransactionManager,
	engine workflow.Engine,
	d dispatcher.Dispatcher,
	logger Logger,
) RequisitionService {
	return &requisitionServiceImpl{
		requisitionRepo: requisitionRepo,
		historyRepo:     historyRepo,
		projectRepo:     projectRepo,
		txManager:       txManager,
		engine:          engine,
		dispatcher:      d,
		logger:          logger,
		clock:           time.Now,
	}
}

// Create inserts a DRAFT requisition and its CREATE history record atomically
func (s *requisitionServiceImpl) Create(ctx context.Context, actor *entity.User, input CreateRequisitionInput) (*entity.Requisition, error) {
	if !actor.IsAuthenticated() {
		return nil, workflow.ErrUnauthenticated
	}
	if permission.Evaluate(actor).Cannot(permission.ActionCreate, permission.TypeOf(entity.SubjectRequisition)) {
		return nil, fmt.Errorf("%w: %s may not create requisitions", ErrForbidden, actor.ID)
	}
	if err := utils.ValidateAmount(input.Total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.clock()
	r := &entity.Requisition{
		Status:      entity.StatusDraft,
		Total:       input.Total,
		RequesterID: actor.ID,
		ProjectID:   input.ProjectID,
		Notes:       utils.SanitizeString(input.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.checkProject(txCtx, r.ProjectID); err != nil {
			return err
		}
		if err := s.requisitionRepo.Create(txCtx, r); err != nil {
			return fmt.Errorf("create requisition: %w", err)
		}

		history := &entity.HistoryRecord{
			RequisitionID: r.ID,
			ActorID:       actor.ID,
			NewStatus:     entity.StatusDraft,
			EventType:     entity.HistoryEventCreate,
			Description:   fmt.Sprintf("Draft created by %s with total %s", actor.Email, r.Total.StringFixed(2)),
			Timestamp:     now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		r.History = []*entity.HistoryRecord{history}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create requisition", "error", err, "actor_id", actor.ID)
		return nil, classify(err)
	}

	s.logger.Info("Requisition created", "id", r.ID, "actor_id", actor.ID, "total", r.Total.String())
	s.dispatch(ctx, event.TypeRequisitionCreated, r.ID, actor.ID, map[string]interface{}{
		"total": r.Total.String(),
	})
	return r, nil
}

// Get returns a requisition with its history. Requisitions the actor may
// not read are reported as not found.
func (s *requisitionServiceImpl) Get(ctx context.Context, actor *entity.User, id int64) (*entity.Requisition, error) {
	if !actor.IsAuthenticated() {
		return nil, workflow.ErrUnauthenticated
	}

	r, err := s.engine.LoadRequisitionWithHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	ability := permission.Evaluate(actor)
	if ability.Cannot(permission.ActionRead, r) {
		return nil, workflow.ErrNotFound
	}
	if ability.Cannot(permission.ActionRead, permission.HistoryOf(r)) {
		r.History = nil
	}

	return r, nil
}

// List returns the requisitions matching filter that the actor may read
func (s *requisitionServiceImpl) List(ctx context.Context, actor *entity.User, filter port.RequisitionFilter) ([]*entity.Requisition, error) {
	ability := permission.Evaluate(actor)
	if ability.Cannot(permission.ActionRead, permission.TypeOf(entity.SubjectRequisition)) {
		return []*entity.Requisition{}, nil
	}

	all, err := s.requisitionRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requisitions", "error", err)
		return nil, fmt.Errorf("%w: %w", workflow.ErrPersistenceFailure, err)
	}

	visible := make([]*entity.Requisition, 0, len(all))
	for _, r := range all {
		if ability.Can(permission.ActionRead, r) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// UpdateDraft edits total, project and notes of a DRAFT requisition
func (s *requisitionServiceImpl) UpdateDraft(ctx context.Context, actor *entity.User, id int64, input UpdateDraftInput) (*entity.Requisition, error) {
	if !actor.IsAuthenticated() {
		return nil, workflow.ErrUnauthenticated
	}
	if input.Total != nil {
		if err := utils.ValidateAmount(*input.Total); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	ability := permission.Evaluate(actor)
	var updated *entity.Requisition

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.requisitionRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if r == nil || ability.Cannot(permission.ActionRead, r) {
			return workflow.ErrNotFound
		}
		if r.Status != entity.StatusDraft {
			return fmt.Errorf("%w: requisition %d is %s", workflow.ErrInvalidTransition, id, r.Status)
		}
		if ability.Cannot(permission.ActionUpdate, r) {
			return fmt.Errorf("%w: %s may not edit requisition %d", ErrForbidden, actor.ID, id)
		}

		if input.Total != nil {
			r.Total = *input.Total
		}
		if input.ClearProject {
			r.ProjectID = nil
		} else if input.ProjectID != nil {
			r.ProjectID = input.ProjectID
		}
		if input.Notes != nil {
			r.Notes = utils.SanitizeString(*input.Notes)
		}
		if err := s.checkProject(txCtx, r.ProjectID); err != nil {
			return err
		}

		r.UpdatedAt = s.clock()
		if err := s.requisitionRepo.UpdateDraft(txCtx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("Draft updated", "id", id, "actor_id", actor.ID)
	s.dispatch(ctx, event.TypeRequisitionUpdated, id, actor.ID, nil)
	return s.engine.LoadRequisitionWithHistory(ctx, updated.ID)
}

// Transition forwards to the workflow engine
func (s *requisitionServiceImpl) Transition(ctx context.Context, actor *entity.User, id int64, cmd workflow.TransitionCommand) (*entity.Requisition, error) {
	return s.engine.AttemptTransition(ctx, id, actor, cmd)
}

// AvailableTriggers lists the events actor could send for r
func (s *requisitionServiceImpl) AvailableTriggers(actor *entity.User, r *entity.Requisition) []domainwf.Trigger {
	return s.engine.AvailableTriggers(r, actor)
}

func (s *requisitionServiceImpl) checkProject(ctx context.Context, projectID *int64) error {
	if projectID == nil {
		return nil
	}
	p, err := s.projectRepo.GetByID(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if p == nil {
		return fmt.Errorf("%w: project %d does not exist", ErrValidation, *projectID)
	}
	return nil
}

func (s *requisitionServiceImpl) dispatch(ctx context.Context, t event.Type, id int64, actorID string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, id, actorID, payload))
}
