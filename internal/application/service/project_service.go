package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/purchase-requisition/internal/application/dispatcher"
	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/event"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
	"github.com/garyjia/purchase-requisition/pkg/utils"
)

// CreateProjectInput is the data needed to register a project
type CreateProjectInput struct {
	Code string
	Name string
}

// ProjectService manages the projects requisitions can be booked against
type ProjectService interface {
	Create(ctx context.Context, actor *entity.User, input CreateProjectInput) (*entity.Project, error)
	Get(ctx context.Context, actor *entity.User, id int64) (*entity.Project, error)
	List(ctx context.Context, actor *entity.User, limit, offset int) ([]*entity.Project, error)
}

type projectServiceImpl struct {
	projectRepo port.ProjectRepository
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	clock       func() time.Time
}

// NewProjectService creates a new ProjectService. The dispatcher may be nil.
func NewProjectService(projectRepo port.ProjectRepository, d dispatcher.Dispatcher, logger Logger) ProjectService {
	return &projectServiceImpl{
		projectRepo: projectRepo,
		dispatcher:  d,
		logger:      logger,
		clock:       time.Now,
	}
}

// Create registers a project with a unique code
func (s *projectServiceImpl) Create(ctx context.Context, actor *entity.User, input CreateProjectInput) (*entity.Project, error) {
	if !actor.IsAuthenticated() {
		return nil, workflow.ErrUnauthenticated
	}
	if permission.Evaluate(actor).Cannot(permission.ActionCreate, permission.TypeOf(entity.SubjectProject)) {
		return nil, fmt.Errorf("%w: %s may not create projects", ErrForbidden, actor.ID)
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	name := utils.SanitizeString(input.Name)
	if err := utils.ValidateProjectCode(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}

	existing, err := s.projectRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, classify(err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: project %s", ErrDuplicate, code)
	}

	p := &entity.Project{Code: code, Name: name, CreatedAt: s.clock()}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		if errors.Is(err, port.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: project %s", ErrDuplicate, code)
		}
		s.logger.Error("Failed to create project", "error", err, "code", code)
		return nil, classify(err)
	}

	s.logger.Info("Project created", "id", p.ID, "code", p.Code, "actor_id", actor.ID)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeProjectCreated, 0, actor.ID, map[string]interface{}{
			"project_id": p.ID,
			"code":       p.Code,
		}))
	}
	return p, nil
}

// Get returns a project, or ErrNotFound when missing or unreadable
func (s *projectServiceImpl) Get(ctx context.Context, actor *entity.User, id int64) (*entity.Project, error) {
	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if p == nil || permission.Evaluate(actor).Cannot(permission.ActionRead, p) {
		return nil, workflow.ErrNotFound
	}
	return p, nil
}

// List returns projects when the actor may read them, otherwise nothing
func (s *projectServiceImpl) List(ctx context.Context, actor *entity.User, limit, offset int) ([]*entity.Project, error) {
	if permission.Evaluate(actor).Cannot(permission.ActionRead, permission.TypeOf(entity.SubjectProject)) {
		return []*entity.Project{}, nil
	}

	projects, err := s.projectRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	if projects == nil {
		projects = []*entity.Project{}
	}
	return projects, nil
}
