package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository. Roles are stored as a
// comma separated list.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a user. The caller assigns the ID.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	var limit sql.NullString
	if u.ApprovalLimit != nil {
		limit = nullString(u.ApprovalLimit.String())
	}

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (id, email, active, roles, approval_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Email,
		u.Active,
		joinRoles(u.Roles),
		limit,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.ID, port.ErrUniqueViolation)
	}
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("id", u.ID), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user, or nil when it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var (
		u     entity.User
		roles string
		limit sql.NullString
	)

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, email, active, roles, approval_limit, created_at, updated_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.Active, &roles, &limit, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Roles = splitRoles(roles)
	if limit.Valid {
		d, err := parseDecimal(limit.String)
		if err != nil {
			return nil, fmt.Errorf("user %s approval limit: %w", id, err)
		}
		u.ApprovalLimit = &d
	}

	return &u, nil
}

func joinRoles(roles []entity.Role) string {
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = role.String()
	}
	return strings.Join(parts, ",")
}

func splitRoles(s string) []entity.Role {
	var roles []entity.Role
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, entity.Role(part))
		}
	}
	return roles
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
