package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

type sqliteEngineFixture struct {
	sqlDB        *sql.DB
	requisitions port.RequisitionRepository
	history      port.HistoryRepository
	engine       workflow.Engine
}

func newSQLiteEngine(t *testing.T) *sqliteEngineFixture {
	t.Helper()
	sqlDB, txManager := setupTestDB(t)

	f := &sqliteEngineFixture{
		sqlDB:        sqlDB,
		requisitions: NewRequisitionRepository(sqlDB, zap.NewNop()),
		history:      NewHistoryRepository(sqlDB, zap.NewNop()),
	}
	f.engine = workflow.NewEngine(f.requisitions, f.history, txManager)
	return f
}

func (f *sqliteEngineFixture) seed(t *testing.T, status string, total int64) int64 {
	t.Helper()
	r := newRequisition("req-1", "1")
	r.Status = status
	r.Total = decimal.NewFromInt(total)
	require.NoError(t, f.requisitions.Create(context.Background(), r))
	return r.ID
}

func user(id string, roles ...entity.Role) *entity.User {
	return &entity.User{ID: id, Email: id + "@example.com", Active: true, Roles: roles}
}

func TestSQLiteEngine_EndToEnd(t *testing.T) {
	f := newSQLiteEngine(t)
	ctx := context.Background()
	id := f.seed(t, entity.StatusDraft, 800)

	limit := decimal.NewFromInt(1000)
	manager := user("boss", entity.RoleManagement)
	manager.ApprovalLimit = &limit

	steps := []struct {
		actor   *entity.User
		trigger domainwf.Trigger
		want    string
	}{
		{user("req-1", entity.RoleRequester), domainwf.TriggerSubmit, entity.StatusPendingPurchasing},
		{user("buyer", entity.RolePurchasing), domainwf.TriggerApprovePurchasing, entity.StatusPendingManagement},
		{manager, domainwf.TriggerApproveManagement, entity.StatusApproved},
		{user("buyer", entity.RolePurchasing), domainwf.TriggerExecute, entity.StatusCompleted},
	}

	for _, step := range steps {
		r, err := f.engine.AttemptTransition(ctx, id, step.actor, workflow.TransitionCommand{Trigger: step.trigger})
		require.NoError(t, err, step.trigger)
		assert.Equal(t, step.want, r.Status)
	}

	r, err := f.engine.LoadRequisitionWithHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, r.History, 4)
	assert.Equal(t, entity.StatusDraft, r.History[0].PreviousStatus)
	assert.Equal(t, entity.StatusCompleted, r.History[3].NewStatus)
	assert.NotNil(t, r.ApprovedAt)
	assert.NotNil(t, r.CompletedAt)
}

func TestSQLiteEngine_FailingHistoryInsertRollsBack(t *testing.T) {
	f := newSQLiteEngine(t)
	ctx := context.Background()
	id := f.seed(t, entity.StatusDraft, 100)

	_, err := f.sqlDB.ExecContext(ctx, `
		CREATE TRIGGER fail_history_insert BEFORE INSERT ON requisition_history
		BEGIN
			SELECT RAISE(ABORT, 'history unavailable');
		END;
	`)
	require.NoError(t, err)

	_, err = f.engine.AttemptTransition(ctx, id, user("req-1", entity.RoleRequester), workflow.TransitionCommand{
		Trigger: domainwf.TriggerSubmit,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrPersistenceFailure)
	assert.True(t, workflow.IsRetryable(err))

	stored, err := f.requisitions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, stored.Status, "status update must be rolled back")

	records, err := f.history.ListByRequisitionID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.sqlDB.ExecContext(ctx, `DROP TRIGGER fail_history_insert`)
	require.NoError(t, err)

	r, err := f.engine.AttemptTransition(ctx, id, user("req-1", entity.RoleRequester), workflow.TransitionCommand{
		Trigger: domainwf.TriggerSubmit,
	})
	require.NoError(t, err, "retry after the failure clears")
	assert.Equal(t, entity.StatusPendingPurchasing, r.Status)
}

func TestSQLiteEngine_ConcurrentApproveAndReject(t *testing.T) {
	for round := 0; round < 5; round++ {
		f := newSQLiteEngine(t)
		id := f.seed(t, entity.StatusPendingPurchasing, 100)
		buyer := user("buyer", entity.RolePurchasing)

		triggers := []domainwf.Trigger{domainwf.TriggerApprovePurchasing, domainwf.TriggerReject}
		errs := make([]error, len(triggers))

		var wg sync.WaitGroup
		for i, trigger := range triggers {
			wg.Add(1)
			go func(i int, trigger domainwf.Trigger) {
				defer wg.Done()
				_, errs[i] = f.engine.AttemptTransition(context.Background(), id, buyer, workflow.TransitionCommand{
					Trigger: trigger,
					Reason:  "over budget",
				})
			}(i, trigger)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t,
				errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrConcurrentUpdate),
				"unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded, "exactly one of the racing transitions commits")

		records, err := f.history.ListByRequisitionID(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
}
