package port

import (
	"context"
	"errors"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

// ErrStatusConflict is returned by conditional writes when the stored status
// no longer matches the status the caller read
var ErrStatusConflict = errors.New("stored status does not match expected status")

// ErrUniqueViolation is returned by inserts that collide with an existing key
var ErrUniqueViolation = errors.New("unique constraint violated")

// Lookups return (nil, nil) when the row does not exist.

// RequisitionFilter narrows a requisition listing. Zero values match everything.
type RequisitionFilter struct {
	Status      string
	RequesterID string
	ProjectID   *int64
	Limit       int
	Offset      int
}

// RequisitionRepository defines persistence operations for Requisition
type RequisitionRepository interface {
	Create(ctx context.Context, r *entity.Requisition) error
	GetByID(ctx context.Context, id int64) (*entity.Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]*entity.Requisition, error)

	// UpdateDraft writes the editable fields of a requisition that is still DRAFT
	UpdateDraft(ctx context.Context, r *entity.Requisition) error

	// UpdateTransition writes the status and the fields set by entry effects.
	// It must only succeed while the stored status equals expectedStatus.
	UpdateTransition(ctx context.Context, r *entity.Requisition, expectedStatus string) error
}

// HistoryRepository defines persistence operations for HistoryRecord.
// History is append-only: there is no update or delete.
type HistoryRepository interface {
	Create(ctx context.Context, record *entity.HistoryRecord) error
	ListByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.HistoryRecord, error)
}

// ProjectRepository defines persistence operations for Project
type ProjectRepository interface {
	Create(ctx context.Context, p *entity.Project) error
	GetByID(ctx context.Context, id int64) (*entity.Project, error)
	GetByCode(ctx context.Context, code string) (*entity.Project, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Project, error)
}

// UserRepository loads actors. Users are owned by the identity subsystem.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
