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

const requisitionColumns = `
	id, status, total, requester_id, project_id, notes, rejection_reason,
	approved_at, rejected_at, completed_at, created_at, updated_at`

// RequisitionRepository implements port.RequisitionRepository
type RequisitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *sql.DB, logger *zap.Logger) port.RequisitionRepository {
	return &RequisitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a requisition and sets its ID
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	query := `
		INSERT INTO requisitions (
			status, total, requester_id, project_id, notes, rejection_reason,
			approved_at, rejected_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Status,
		req.Total.String(),
		req.RequesterID,
		nullInt64(req.ProjectID),
		req.Notes,
		req.RejectionReason,
		nullTime(req.ApprovedAt),
		nullTime(req.RejectedAt),
		nullTime(req.CompletedAt),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create requisition", zap.Error(err))
		return fmt.Errorf("failed to create requisition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a requisition by ID, or nil when it does not exist
func (r *RequisitionRepository) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM requisitions WHERE id = ?`

	req, err := scanRequisition(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get requisition by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get requisition: %w", err)
	}

	return req, nil
}

// List retrieves requisitions matching filter, newest first
func (r *RequisitionRepository) List(ctx context.Context, filter port.RequisitionFilter) ([]*entity.Requisition, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}

	query := `SELECT ` + requisitionColumns + ` FROM requisitions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requisitions", zap.Error(err))
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}
	defer rows.Close()

	var requisitions []*entity.Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition: %w", err)
		}
		requisitions = append(requisitions, req)
	}

	return requisitions, rows.Err()
}

// UpdateDraft writes notes, total and project of a DRAFT requisition
func (r *RequisitionRepository) UpdateDraft(ctx context.Context, req *entity.Requisition) error {
	query := `
		UPDATE requisitions
		SET total = ?, project_id = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Total.String(),
		nullInt64(req.ProjectID),
		req.Notes,
		req.UpdatedAt,
		req.ID,
		entity.StatusDraft,
	)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update draft: %w", err)
	}

	return expectOneRow(result, req.ID)
}

// UpdateTransition writes a transition result, conditional on the stored
// status still being expectedStatus
func (r *RequisitionRepository) UpdateTransition(ctx context.Context, req *entity.Requisition, expectedStatus string) error {
	query := `
		UPDATE requisitions
		SET status = ?, notes = ?, rejection_reason = ?,
			approved_at = ?, rejected_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Status,
		req.Notes,
		req.RejectionReason,
		nullTime(req.ApprovedAt),
		nullTime(req.RejectedAt),
		nullTime(req.CompletedAt),
		req.UpdatedAt,
		req.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update requisition status",
			zap.Int64("id", req.ID),
			zap.String("expected_status", expectedStatus),
			zap.String("status", req.Status),
			zap.Error(err))
		return fmt.Errorf("failed to update requisition status: %w", err)
	}

	return expectOneRow(result, req.ID)
}

func expectOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("requisition %d: %w", id, port.ErrStatusConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequisition(row rowScanner) (*entity.Requisition, error) {
	var req entity.Requisition
	var total string
	var projectID sql.NullInt64
	var approvedAt, rejectedAt, completedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.Status,
		&total,
		&req.RequesterID,
		&projectID,
		&req.Notes,
		&req.RejectionReason,
		&approvedAt,
		&rejectedAt,
		&completedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.Total, err = parseDecimal(total); err != nil {
		return nil, fmt.Errorf("requisition %d total: %w", req.ID, err)
	}
	if projectID.Valid {
		req.ProjectID = &projectID.Int64
	}
	req.ApprovedAt = timePtr(approvedAt)
	req.RejectedAt = timePtr(rejectedAt)
	req.CompletedAt = timePtr(completedAt)

	return &req, nil
}

// Verify interface compliance
var _ port.RequisitionRepository = (*RequisitionRepository)(nil)
