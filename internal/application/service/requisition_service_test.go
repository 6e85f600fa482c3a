package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

var fixedNow = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func actor(id string, roles ...entity.Role) *entity.User {
	return &entity.User{ID: id, Email: id + "@example.com", Active: true, Roles: roles}
}

type serviceFixture struct {
	requisitions *mockRequisitionRepo
	history      *mockHistoryRepo
	projects     *mockProjectRepo
	tx           *mockTxManager
	engine       *mockEngine
	svc          *requisitionServiceImpl
}

func newServiceFixture(seed ...*entity.Requisition) *serviceFixture {
	f := &serviceFixture{
		requisitions: newMockRequisitionRepo(seed...),
		history:      &mockHistoryRepo{},
		projects:     newMockProjectRepo(&entity.Project{ID: 3, Code: "OPS", Name: "Operations"}),
		tx:           &mockTxManager{},
	}
	f.engine = &mockEngine{requisitions: f.requisitions, history: f.history}

	svc := NewRequisitionService(f.requisitions, f.history, f.projects, f.tx, f.engine, nil, nopLogger{})
	f.svc = svc.(*requisitionServiceImpl)
	f.svc.clock = func() time.Time { return fixedNow }
	return f
}

func draft(id int64, requester string) *entity.Requisition {
	return &entity.Requisition{
		ID:          id,
		Status:      entity.StatusDraft,
		Total:       decimal.NewFromInt(250),
		RequesterID: requester,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
}

func TestCreate_InsertsDraftWithHistory(t *testing.T) {
	f := newServiceFixture()
	projectID := int64(3)

	r, err := f.svc.Create(context.Background(), actor("req-1", entity.RoleRequester), CreateRequisitionInput{
		Total:     decimal.RequireFromString("120.50"),
		ProjectID: &projectID,
		Notes:     "  laptops\x00 ",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, entity.StatusDraft, r.Status)
	assert.Equal(t, "req-1", r.RequesterID)
	assert.Equal(t, "laptops", r.Notes)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Equal(t, 1, f.tx.calls)

	require.Len(t, r.History, 1)
	assert.Equal(t, entity.HistoryEventCreate, r.History[0].EventType)
	assert.Equal(t, entity.StatusDraft, r.History[0].NewStatus)
	assert.Equal(t, "", r.History[0].PreviousStatus)
	assert.Equal(t, r.ID, r.History[0].RequisitionID)
}

func TestCreate_Rejections(t *testing.T) {
	missingProject := int64(99)

	tests := []struct {
		name    string
		actor   *entity.User
		input   CreateRequisitionInput
		wantErr error
	}{
		{
			name:    "anonymous",
			actor:   nil,
			input:   CreateRequisitionInput{Total: decimal.NewFromInt(1)},
			wantErr: workflow.ErrNotFound,
		},
		{
			name:    "purchasing cannot create",
			actor:   actor("buyer", entity.RolePurchasing),
			input:   CreateRequisitionInput{Total: decimal.NewFromInt(1)},
			wantErr: ErrForbidden,
		},
		{
			name:    "zero total",
			actor:   actor("req-1", entity.RoleRequester),
			input:   CreateRequisitionInput{Total: decimal.Zero},
			wantErr: ErrValidation,
		},
		{
			name:    "fractional cents",
			actor:   actor("req-1", entity.RoleRequester),
			input:   CreateRequisitionInput{Total: decimal.RequireFromString("1.005")},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown project",
			actor:   actor("req-1", entity.RoleRequester),
			input:   CreateRequisitionInput{Total: decimal.NewFromInt(5), ProjectID: &missingProject},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			r, err := f.svc.Create(context.Background(), tt.actor, tt.input)

			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.requisitions.requisitions)
			assert.Empty(t, f.history.records)
		})
	}
}

func TestCreate_HistoryFailureIsPersistenceFailure(t *testing.T) {
	f := newServiceFixture()
	f.history.createErr = errors.New("disk full")

	_, err := f.svc.Create(context.Background(), actor("req-1", entity.RoleRequester), CreateRequisitionInput{
		Total: decimal.NewFromInt(10),
	})

	require.Error(t, err)
	assert.True(t, workflow.IsRetryable(err))
}

func TestGet_FailsClosed(t *testing.T) {
	f := newServiceFixture(draft(1, "req-1"))
	ctx := context.Background()

	r, err := f.svc.Get(ctx, actor("req-1", entity.RoleRequester), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)

	_, err = f.svc.Get(ctx, actor("req-2", entity.RoleRequester), 1)
	assert.ErrorIs(t, err, workflow.ErrNotFound, "someone else's draft must look missing")

	_, err = f.svc.Get(ctx, actor("req-1", entity.RoleRequester), 42)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.svc.Get(ctx, nil, 1)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestGet_IncludesHistoryForReviewers(t *testing.T) {
	f := newServiceFixture(draft(1, "req-1"))
	require.NoError(t, f.history.Create(context.Background(), &entity.HistoryRecord{
		RequisitionID: 1,
		NewStatus:     entity.StatusDraft,
		EventType:     entity.HistoryEventCreate,
	}))

	r, err := f.svc.Get(context.Background(), actor("buyer", entity.RolePurchasing), 1)
	require.NoError(t, err)
	assert.Len(t, r.History, 1)

	r, err = f.svc.Get(context.Background(), actor("req-1", entity.RoleRequester), 1)
	require.NoError(t, err)
	assert.Len(t, r.History, 1, "requesters see the history of their own requisitions")
}

func TestList_FiltersByReadAccess(t *testing.T) {
	f := newServiceFixture(draft(1, "req-1"), draft(2, "req-2"), draft(3, "req-1"))
	ctx := context.Background()

	mine, err := f.svc.List(ctx, actor("req-1", entity.RoleRequester), port.RequisitionFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(1), mine[0].ID)
	assert.Equal(t, int64(3), mine[1].ID)

	all, err := f.svc.List(ctx, actor("boss", entity.RoleManagement), port.RequisitionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.svc.List(ctx, nil, port.RequisitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestList_RepositoryError(t *testing.T) {
	f := newServiceFixture()
	f.requisitions.listFunc = func(context.Context, port.RequisitionFilter) ([]*entity.Requisition, error) {
		return nil, errors.New("database is locked")
	}

	_, err := f.svc.List(context.Background(), actor("buyer", entity.RolePurchasing), port.RequisitionFilter{})
	assert.True(t, workflow.IsRetryable(err))
}

func TestUpdateDraft(t *testing.T) {
	f := newServiceFixture(draft(1, "req-1"))
	total := decimal.NewFromInt(900)
	notes := "two more monitors"
	project := int64(3)

	r, err := f.svc.UpdateDraft(context.Background(), actor("req-1", entity.RoleRequester), 1, UpdateDraftInput{
		Total:     &total,
		Notes:     &notes,
		ProjectID: &project,
	})
	require.NoError(t, err)

	assert.True(t, total.Equal(r.Total))
	assert.Equal(t, notes, r.Notes)
	require.NotNil(t, r.ProjectID)
	assert.Equal(t, int64(3), *r.ProjectID)
	assert.Equal(t, entity.StatusDraft, r.Status)

	r, err = f.svc.UpdateDraft(context.Background(), actor("req-1", entity.RoleRequester), 1, UpdateDraftInput{ClearProject: true})
	require.NoError(t, err)
	assert.Nil(t, r.ProjectID)
	assert.Equal(t, notes, r.Notes, "nil fields are left unchanged")
}

func TestUpdateDraft_Rejections(t *testing.T) {
	submitted := draft(2, "req-1")
	submitted.Status = entity.StatusPendingPurchasing
	negative := decimal.NewFromInt(-5)
	missingProject := int64(77)

	tests := []struct {
		name    string
		actor   *entity.User
		id      int64
		input   UpdateDraftInput
		wantErr error
	}{
		{"not a draft", actor("req-1", entity.RoleRequester), 2, UpdateDraftInput{}, workflow.ErrInvalidTransition},
		{"someone else's draft", actor("req-2", entity.RoleRequester), 1, UpdateDraftInput{}, workflow.ErrNotFound},
		{"reader without update right", actor("buyer", entity.RolePurchasing), 1, UpdateDraftInput{}, ErrForbidden},
		{"negative total", actor("req-1", entity.RoleRequester), 1, UpdateDraftInput{Total: &negative}, ErrValidation},
		{"unknown project", actor("req-1", entity.RoleRequester), 1, UpdateDraftInput{ProjectID: &missingProject}, ErrValidation},
		{"missing requisition", actor("req-1", entity.RoleRequester), 9, UpdateDraftInput{}, workflow.ErrNotFound},
		{"anonymous", nil, 1, UpdateDraftInput{}, workflow.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(draft(1, "req-1"), submitted.Clone())
			_, err := f.svc.UpdateDraft(context.Background(), tt.actor, tt.id, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, entity.StatusPendingPurchasing, f.requisitions.requisitions[2].Status)
		})
	}
}

func TestTransition_DelegatesToEngine(t *testing.T) {
	f := newServiceFixture(draft(1, "req-1"))
	cmd := workflow.TransitionCommand{Trigger: domainwf.TriggerSubmit, Notes: "please"}

	r, err := f.svc.Transition(context.Background(), actor("req-1", entity.RoleRequester), 1, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, cmd, f.engine.lastCmd)
}
