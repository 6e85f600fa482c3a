package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
)

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// Create inserts a project and sets its ID
func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO projects (code, name, created_at) VALUES (?, ?, ?)`,
		p.Code, p.Name, p.CreatedAt,
	)
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("project %s: %w", p.Code, port.ErrUniqueViolation)
	}
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("code", p.Code), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a project by ID, or nil when it does not exist
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	return r.getOne(ctx, `SELECT id, code, name, created_at FROM projects WHERE id = ?`, id)
}

// GetByCode retrieves a project by its unique code, or nil when it does not exist
func (r *ProjectRepository) GetByCode(ctx context.Context, code string) (*entity.Project, error) {
	return r.getOne(ctx, `SELECT id, code, name, created_at FROM projects WHERE code = ?`, code)
}

func (r *ProjectRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.Project, error) {
	var p entity.Project
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// List retrieves projects ordered by code
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]*entity.Project, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		`SELECT id, code, name, created_at FROM projects ORDER BY code LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		var p entity.Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}

	return projects, rows.Err()
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
