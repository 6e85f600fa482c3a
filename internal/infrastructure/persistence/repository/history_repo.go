package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, record *entity.HistoryRecord) error {
	query := `
		INSERT INTO requisition_history (
			requisition_id, actor_id, previous_status, new_status,
			event_type, description, payload, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		record.RequisitionID,
		record.ActorID,
		record.PreviousStatus,
		record.NewStatus,
		record.EventType,
		record.Description,
		record.Payload,
		record.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("requisition_id", record.RequisitionID),
			zap.String("event_type", record.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByRequisitionID returns the history of a requisition in insertion order
func (r *HistoryRepository) ListByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.HistoryRecord, error) {
	query := `
		SELECT id, requisition_id, actor_id, previous_status, new_status,
			event_type, description, payload, timestamp
		FROM requisition_history
		WHERE requisition_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requisitionID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("requisition_id", requisitionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := []*entity.HistoryRecord{}
	for rows.Next() {
		var record entity.HistoryRecord
		err := rows.Scan(
			&record.ID,
			&record.RequisitionID,
			&record.ActorID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.EventType,
			&record.Description,
			&record.Payload,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
