package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// mockStore is a minimal in-memory Store for testing.
type mockStore struct {
	mu          sync.Mutex
	workflows   map[string]*store.Workflow
	executions  map[string]*store.Execution
	created     []string
	finalized   int
	finalizeErr error
	// successErr rejects only SUCCESS finalizations.
	successErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		workflows:  make(map[string]*store.Workflow),
		executions: make(map[string]*store.Execution),
	}
}

func (m *mockStore) addWorkflow(wf *store.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[wf.ID] = wf
}

func (m *mockStore) GetWorkflow(_ context.Context, id string) (*store.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "workflow %s not found", id)
	}
	cp := *wf
	return &cp, nil
}

func (m *mockStore) CreateExecution(_ context.Context, ex *store.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ex
	m.executions[ex.ID] = &cp
	m.created = append(m.created, ex.ID)
	return nil
}

func (m *mockStore) GetExecution(_ context.Context, id string) (*store.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.executions[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "execution %s not found", id)
	}
	cp := *ex
	return &cp, nil
}

func (m *mockStore) FinalizeExecution(_ context.Context, id string, u store.ExecutionUpdate, workflowID string, succeeded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	if succeeded && m.successErr != nil {
		return m.successErr
	}
	ex, ok := m.executions[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "execution %s not found", id)
	}
	wf, ok := m.workflows[workflowID]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "workflow %s not found", workflowID)
	}
	if u.Status != nil {
		ex.Status = *u.Status
	}
	if u.OutputData != nil {
		ex.OutputData = u.OutputData
	}
	if u.StepsExecuted != nil {
		ex.StepsExecuted = u.StepsExecuted
	}
	if u.TotalSteps != nil {
		ex.TotalSteps = *u.TotalSteps
	}
	if u.ErrorMessage != nil {
		ex.ErrorMessage = *u.ErrorMessage
	}
	if u.ErrorStack != nil {
		ex.ErrorStack = *u.ErrorStack
	}
	if u.FailedStep != nil {
		ex.FailedStep = *u.FailedStep
	}
	ex.CompletedAt = u.CompletedAt
	ex.DurationMs = u.DurationMs

	wf.TotalRuns++
	if succeeded {
		wf.SuccessfulRuns++
	} else {
		wf.FailedRuns++
	}
	at := time.Now().UTC()
	if u.CompletedAt != nil {
		at = *u.CompletedAt
	}
	wf.LastExecutedAt = &at
	m.finalized++
	return nil
}

func (m *mockStore) execution(id string) *store.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.executions[id]
	return &cp
}

func (m *mockStore) workflow(id string) *store.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.workflows[id]
	return &cp
}
