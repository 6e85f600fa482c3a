package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/purchase-requisition/migrations"
	"github.com/garyjia/purchase-requisition/pkg/database"
)

var baseTime = time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)

// setupTestDB opens a migrated SQLite file in a temp dir
func setupTestDB(t *testing.T) (*sql.DB, *sqlite.DB) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:        filepath.Join(t.TempDir(), "requisitions.db"),
		BusyTimeout: 10 * time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)
	require.Positive(t, applied)

	return db.DB, sqlite.NewDB(db.DB, logger)
}

func newRequisition(requester string, total string) *entity.Requisition {
	return &entity.Requisition{
		Status:      entity.StatusDraft,
		Total:       decimal.RequireFromString(total),
		RequesterID: requester,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
}

func TestRequisitionRepository_CreateAndGet(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	projects := NewProjectRepository(sqlDB, zap.NewNop())
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	project := &entity.Project{Code: "OPS", Name: "Operations", CreatedAt: baseTime}
	require.NoError(t, projects.Create(ctx, project))

	req := newRequisition("req-1", "1234.56")
	req.ProjectID = &project.ID
	req.Notes = "standing desks"
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, entity.StatusDraft, got.Status)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(got.Total))
	assert.Equal(t, "req-1", got.RequesterID)
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, project.ID, *got.ProjectID)
	assert.Equal(t, "standing desks", got.Notes)
	assert.Nil(t, got.ApprovedAt)
	assert.True(t, baseTime.Equal(got.CreatedAt))

	missing, err := repo.GetByID(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRequisitionRepository_RejectsUnknownProject(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	req := newRequisition("req-1", "10")
	unknown := int64(42)
	req.ProjectID = &unknown

	assert.Error(t, repo.Create(context.Background(), req))
}

func TestRequisitionRepository_List(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	for _, requester := range []string{"a", "b", "a", "a"} {
		require.NoError(t, repo.Create(ctx, newRequisition(requester, "5")))
	}
	approved := newRequisition("b", "7")
	approved.Status = entity.StatusApproved
	require.NoError(t, repo.Create(ctx, approved))

	all, err := repo.List(ctx, port.RequisitionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, approved.ID, all[0].ID, "newest first")

	mine, err := repo.List(ctx, port.RequisitionFilter{RequesterID: "a"})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	byStatus, err := repo.List(ctx, port.RequisitionFilter{Status: entity.StatusApproved})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "b", byStatus[0].RequesterID)

	page, err := repo.List(ctx, port.RequisitionFilter{RequesterID: "a", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].ID, page[1].ID)
}

func TestRequisitionRepository_UpdateDraftOnlyWhileDraft(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	req := newRequisition("req-1", "10")
	require.NoError(t, repo.Create(ctx, req))

	req.Total = decimal.RequireFromString("20.10")
	req.Notes = "updated"
	req.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, repo.UpdateDraft(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.1", got.Total.String())
	assert.Equal(t, "updated", got.Notes)

	submitted := got.Clone()
	submitted.Status = entity.StatusPendingPurchasing
	require.NoError(t, repo.UpdateTransition(ctx, submitted, entity.StatusDraft))

	got.Notes = "too late"
	err = repo.UpdateDraft(ctx, got)
	assert.ErrorIs(t, err, port.ErrStatusConflict)
}

func TestRequisitionRepository_UpdateTransitionIsConditional(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	req := newRequisition("req-1", "10")
	req.Status = entity.StatusPendingManagement
	require.NoError(t, repo.Create(ctx, req))

	approvedAt := baseTime.Add(2 * time.Hour)
	approved := req.Clone()
	approved.Status = entity.StatusApproved
	approved.ApprovedAt = &approvedAt
	approved.UpdatedAt = approvedAt
	require.NoError(t, repo.UpdateTransition(ctx, approved, entity.StatusPendingManagement))

	rejected := req.Clone()
	rejected.Status = entity.StatusRejected
	rejected.RejectionReason = "stale"
	err := repo.UpdateTransition(ctx, rejected, entity.StatusPendingManagement)
	assert.ErrorIs(t, err, port.ErrStatusConflict)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	assert.Empty(t, got.RejectionReason)
}

func TestRequisitionRepository_StatusCheckConstraint(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	repo := NewRequisitionRepository(sqlDB, zap.NewNop())

	req := newRequisition("req-1", "10")
	req.Status = "CREATED"
	assert.Error(t, repo.Create(context.Background(), req))
}

func TestHistoryRepository_AppendOnly(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	requisitions := NewRequisitionRepository(sqlDB, zap.NewNop())
	history := NewHistoryRepository(sqlDB, zap.NewNop())

	req := newRequisition("req-1", "10")
	require.NoError(t, requisitions.Create(ctx, req))

	empty, err := history.ListByRequisitionID(ctx, req.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for i, status := range []string{entity.StatusDraft, entity.StatusPendingPurchasing} {
		require.NoError(t, history.Create(ctx, &entity.HistoryRecord{
			RequisitionID: req.ID,
			ActorID:       "req-1",
			NewStatus:     status,
			EventType:     "SUBMIT",
			Payload:       `{"n":1}`,
			Timestamp:     baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := history.ListByRequisitionID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.StatusDraft, records[0].NewStatus)
	assert.Equal(t, entity.StatusPendingPurchasing, records[1].NewStatus)
	assert.Equal(t, `{"n":1}`, records[1].Payload)

	_, err = sqlDB.ExecContext(ctx, `UPDATE requisition_history SET new_status = 'APPROVED'`)
	assert.ErrorContains(t, err, "append-only")

	_, err = sqlDB.ExecContext(ctx, `DELETE FROM requisition_history`)
	assert.ErrorContains(t, err, "append-only")
}

func TestProjectRepository(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	repo := NewProjectRepository(sqlDB, zap.NewNop())

	for _, code := range []string{"ZETA", "ALPHA"} {
		require.NoError(t, repo.Create(ctx, &entity.Project{Code: code, Name: code, CreatedAt: baseTime}))
	}
	err := repo.Create(ctx, &entity.Project{Code: "ALPHA", Name: "again", CreatedAt: baseTime})
	assert.ErrorIs(t, err, port.ErrUniqueViolation)

	p, err := repo.GetByCode(ctx, "ZETA")
	require.NoError(t, err)
	require.NotNil(t, p)

	byID, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ZETA", byID.Code)

	none, err := repo.GetByCode(ctx, "NOPE")
	assert.NoError(t, err)
	assert.Nil(t, none)

	list, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ALPHA", list[0].Code)

	list, err = repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ZETA", list[0].Code)
}

func TestUserRepository(t *testing.T) {
	sqlDB, _ := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(sqlDB, zap.NewNop())

	limit := decimal.RequireFromString("2500.00")
	manager := &entity.User{
		ID:            "u-boss",
		Email:         "boss@example.com",
		Active:        true,
		Roles:         []entity.Role{entity.RoleManagement, entity.RoleRequester},
		ApprovalLimit: &limit,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
	require.NoError(t, repo.Create(ctx, manager))
	require.NoError(t, repo.Create(ctx, &entity.User{ID: "u-new", Email: "new@example.com", CreatedAt: baseTime, UpdatedAt: baseTime}))
	assert.ErrorIs(t, repo.Create(ctx, &entity.User{ID: "u-new", Email: "dup@example.com"}), port.ErrUniqueViolation)

	got, err := repo.GetByID(ctx, "u-boss")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)
	assert.Equal(t, []entity.Role{entity.RoleManagement, entity.RoleRequester}, got.Roles)
	require.NotNil(t, got.ApprovalLimit)
	assert.True(t, limit.Equal(*got.ApprovalLimit))

	fresh, err := repo.GetByID(ctx, "u-new")
	require.NoError(t, err)
	assert.False(t, fresh.Active)
	assert.Empty(t, fresh.Roles)
	assert.Nil(t, fresh.ApprovalLimit)

	missing, err := repo.GetByID(ctx, "u-ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMigrations_AreIdempotent(t *testing.T) {
	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "twice.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	first, err := migrator.Run(migrations.FS)
	require.NoError(t, err)
	second, err := migrator.Run(migrations.FS)
	require.NoError(t, err)

	assert.Positive(t, first)
	assert.Zero(t, second)
}
