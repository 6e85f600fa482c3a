package service

import (
	"context"
	"sync"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

type mockRequisitionRepo struct {
	mu           sync.Mutex
	requisitions map[int64]*entity.Requisition
	nextID       int64

	createFunc      func(ctx context.Context, r *entity.Requisition) error
	listFunc        func(ctx context.Context, f port.RequisitionFilter) ([]*entity.Requisition, error)
	updateDraftFunc func(ctx context.Context, r *entity.Requisition) error
}

func newMockRequisitionRepo(seed ...*entity.Requisition) *mockRequisitionRepo {
	m := &mockRequisitionRepo{requisitions: make(map[int64]*entity.Requisition)}
	for _, r := range seed {
		m.requisitions[r.ID] = r
		if r.ID > m.nextID {
			m.nextID = r.ID
		}
	}
	return m
}

func (m *mockRequisitionRepo) Create(ctx context.Context, r *entity.Requisition) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.requisitions[r.ID] = r.Clone()
	return nil
}

func (m *mockRequisitionRepo) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requisitions[id].Clone(), nil
}

func (m *mockRequisitionRepo) List(ctx context.Context, f port.RequisitionFilter) ([]*entity.Requisition, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Requisition
	for id := int64(1); id <= m.nextID; id++ {
		if r, ok := m.requisitions[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *mockRequisitionRepo) UpdateDraft(ctx context.Context, r *entity.Requisition) error {
	if m.updateDraftFunc != nil {
		return m.updateDraftFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requisitions[r.ID] = r.Clone()
	return nil
}

func (m *mockRequisitionRepo) UpdateTransition(ctx context.Context, r *entity.Requisition, expected string) error {
	return nil
}

type mockHistoryRepo struct {
	mu        sync.Mutex
	records   []*entity.HistoryRecord
	createErr error
}

func (m *mockHistoryRepo) Create(ctx context.Context, rec *entity.HistoryRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return nil
}

func (m *mockHistoryRepo) ListByRequisitionID(ctx context.Context, id int64) ([]*entity.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.HistoryRecord
	for _, r := range m.records {
		if r.RequisitionID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockProjectRepo struct {
	projects  map[int64]*entity.Project
	createErr error
}

func newMockProjectRepo(seed ...*entity.Project) *mockProjectRepo {
	m := &mockProjectRepo{projects: make(map[int64]*entity.Project)}
	for _, p := range seed {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockProjectRepo) Create(ctx context.Context, p *entity.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = int64(len(m.projects) + 1)
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	return m.projects[id], nil
}

func (m *mockProjectRepo) GetByCode(ctx context.Context, code string) (*entity.Project, error) {
	for _, p := range m.projects {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProjectRepo) List(ctx context.Context, limit, offset int) ([]*entity.Project, error) {
	var out []*entity.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

// mockTxManager runs fn directly and counts calls
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockEngine struct {
	requisitions port.RequisitionRepository
	history      port.HistoryRepository
	lastCmd      workflow.TransitionCommand
}

func (m *mockEngine) AttemptTransition(ctx context.Context, id int64, actor *entity.User, cmd workflow.TransitionCommand) (*entity.Requisition, error) {
	m.lastCmd = cmd
	return m.LoadRequisitionWithHistory(ctx, id)
}

func (m *mockEngine) LoadRequisitionWithHistory(ctx context.Context, id int64) (*entity.Requisition, error) {
	r, _ := m.requisitions.GetByID(ctx, id)
	if r == nil {
		return nil, workflow.ErrNotFound
	}
	r.History, _ = m.history.ListByRequisitionID(ctx, id)
	return r, nil
}

func (m *mockEngine) AvailableTriggers(r *entity.Requisition, actor *entity.User) []domainwf.Trigger {
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
