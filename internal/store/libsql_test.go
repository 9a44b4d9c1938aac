package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDefinition() schema.WorkflowDefinition {
	return schema.WorkflowDefinition{
		Steps: []schema.StepDefinition{
			{ID: "t1", Type: schema.StepKindTrigger, BlockType: "webhook-trigger"},
			{ID: "a1", Type: schema.StepKindAction, BlockType: "logger", Config: map[string]any{"message": "hi"}},
		},
		Connections: []schema.Connection{{From: "t1", To: "a1"}},
	}
}

func seedWorkflow(t *testing.T, s Store) *Workflow {
	t.Helper()
	wf := &Workflow{
		ID:         uuid.New().String(),
		UserID:     "user-1",
		Name:       "wf",
		Definition: sampleDefinition(),
		IsActive:   true,
	}
	require.NoError(t, s.CreateWorkflow(context.Background(), wf))
	return wf
}

func seedExecution(t *testing.T, s Store, wf *Workflow, started time.Time) *Execution {
	t.Helper()
	ex := &Execution{
		ID:            uuid.New().String(),
		WorkflowID:    wf.ID,
		UserID:        wf.UserID,
		Status:        schema.ExecutionRunning,
		Mode:          schema.ModeNormal,
		TriggerSource: schema.SourceManual,
		InputData:     map[string]any{"k": "v"},
		StartedAt:     started,
	}
	require.NoError(t, s.CreateExecution(context.Background(), ex))
	return ex
}

func TestLibSQL_Workflows(t *testing.T)    { testWorkflows(t, newTestStore(t)) }
func TestLibSQL_Executions(t *testing.T)   { testExecutions(t, newTestStore(t)) }
func TestLibSQL_Finalize(t *testing.T)     { testFinalize(t, newTestStore(t)) }
func TestLibSQL_Integrations(t *testing.T) { testIntegrations(t, newTestStore(t)) }

func TestLibSQL_MigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.DB().QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", "")
	assert.ErrorContains(t, err, "unknown database driver")
}

func testWorkflows(t *testing.T, s Store) {
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf", got.Name)
	assert.True(t, got.IsActive)
	assert.Len(t, got.Definition.Steps, 2)
	assert.Equal(t, "logger", got.Definition.Steps[1].BlockType)
	assert.Nil(t, got.LastExecutedAt)

	_, err = s.GetWorkflow(ctx, "missing")
	assert.True(t, schema.IsNotFound(err))

	name := "renamed"
	inactive := false
	require.NoError(t, s.UpdateWorkflow(ctx, wf.ID, WorkflowUpdate{Name: &name, IsActive: &inactive}))
	got, err = s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.IsActive)

	err = s.UpdateWorkflow(ctx, "missing", WorkflowUpdate{Name: &name})
	assert.True(t, schema.IsNotFound(err))

	other := seedWorkflow(t, s)
	active := true
	list, err := s.ListWorkflows(ctx, WorkflowFilter{UserID: "user-1", IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	okRun := seedExecution(t, s, other, time.Now().UTC())
	badRun := seedExecution(t, s, other, time.Now().UTC())
	require.NoError(t, s.FinalizeExecution(ctx, okRun.ID, ExecutionUpdate{}, other.ID, true))
	require.NoError(t, s.FinalizeExecution(ctx, badRun.ID, ExecutionUpdate{}, other.ID, false))
	got, err = s.GetWorkflow(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.TotalRuns)
	assert.EqualValues(t, 1, got.SuccessfulRuns)
	assert.EqualValues(t, 1, got.FailedRuns)
	assert.NotNil(t, got.LastExecutedAt)

	require.NoError(t, s.DeleteWorkflow(ctx, wf.ID))
	assert.True(t, schema.IsNotFound(s.DeleteWorkflow(ctx, wf.ID)))
}

func testExecutions(t *testing.T, s Store) {
	ctx := context.Background()
	wf := seedWorkflow(t, s)
	base := time.Now().UTC().Add(-time.Hour)
	first := seedExecution(t, s, wf, base)
	second := seedExecution(t, s, wf, base.Add(time.Minute))

	got, err := s.GetExecution(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionRunning, got.Status)
	assert.Equal(t, "v", got.InputData["k"])
	assert.Empty(t, got.StepsExecuted)
	assert.Nil(t, got.OutputData)
	assert.Nil(t, got.CompletedAt)

	_, err = s.GetExecution(ctx, "missing")
	assert.True(t, schema.IsNotFound(err))

	status := schema.ExecutionFailed
	msg := "boom"
	total := 1
	require.NoError(t, s.FinalizeExecution(ctx, first.ID, ExecutionUpdate{
		Status:        &status,
		ErrorMessage:  &msg,
		TotalSteps:    &total,
		StepsExecuted: []schema.TraceEntry{{StepID: "t1", Type: "webhook-trigger", Timestamp: "now"}},
	}, wf.ID, false))
	got, err = s.GetExecution(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.Equal(t, 1, got.TotalSteps)
	require.Len(t, got.StepsExecuted, 1)
	assert.Equal(t, "t1", got.StepsExecuted[0].StepID)

	list, err := s.ListExecutions(ctx, ExecutionFilter{WorkflowID: wf.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	list, err = s.ListExecutions(ctx, ExecutionFilter{WorkflowID: wf.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	list, err = s.ListExecutions(ctx, ExecutionFilter{WorkflowID: wf.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	require.NoError(t, s.DeleteWorkflow(ctx, wf.ID))
	_, err = s.GetExecution(ctx, second.ID)
	assert.True(t, schema.IsNotFound(err), "executions cascade with their workflow")
}

func testFinalize(t *testing.T, s Store) {
	ctx := context.Background()
	wf := seedWorkflow(t, s)
	ex := seedExecution(t, s, wf, time.Now().UTC())

	status := schema.ExecutionSuccess
	done := time.Now().UTC()
	dur := int64(42)
	require.NoError(t, s.FinalizeExecution(ctx, ex.ID, ExecutionUpdate{
		Status:      &status,
		OutputData:  map[string]any{"a1": map[string]any{"logged": true}},
		CompletedAt: &done,
		DurationMs:  &dur,
	}, wf.ID, true))

	got, err := s.GetExecution(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionSuccess, got.Status)
	require.NotNil(t, got.DurationMs)
	assert.EqualValues(t, 42, *got.DurationMs)
	assert.NotNil(t, got.CompletedAt)
	assert.Contains(t, got.OutputData, "a1")

	w, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, w.TotalRuns)
	assert.EqualValues(t, 1, w.SuccessfulRuns)
	assert.EqualValues(t, 0, w.FailedRuns)

	// A missing workflow rolls the execution update back.
	ex2 := seedExecution(t, s, wf, time.Now().UTC())
	failed := schema.ExecutionFailed
	err = s.FinalizeExecution(ctx, ex2.ID, ExecutionUpdate{Status: &failed}, "missing", false)
	require.Error(t, err)
	got, err = s.GetExecution(ctx, ex2.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionRunning, got.Status)

	msg, step := "Slack error: channel_not_found", "notify"
	require.NoError(t, s.FinalizeExecution(ctx, ex2.ID, ExecutionUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
		FailedStep:   &step,
	}, wf.ID, false))
	got, err = s.GetExecution(ctx, ex2.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionFailed, got.Status)
	assert.Equal(t, msg, got.ErrorMessage)
	assert.Equal(t, "notify", got.FailedStep)

	w, err = s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, w.TotalRuns)
	assert.EqualValues(t, 1, w.FailedRuns)
}

func testIntegrations(t *testing.T, s Store) {
	ctx := context.Background()
	old := &Integration{
		ID: uuid.New().String(), UserID: "user-1", Type: schema.IntegrationChat,
		Provider: "slack", AccessToken: "xoxb-old", IsActive: true,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &Integration{
		ID: uuid.New().String(), UserID: "user-1", Type: schema.IntegrationChat,
		Provider: "slack", AccessToken: "xoxb-new", IsActive: true,
		Config: map[string]any{"channel": "#general"},
	}
	disabled := &Integration{
		ID: uuid.New().String(), UserID: "user-1", Type: schema.IntegrationEmail,
		Provider: "gmail", AccessToken: "ya29", IsActive: false,
	}
	for _, in := range []*Integration{old, newer, disabled} {
		require.NoError(t, s.CreateIntegration(ctx, in))
	}

	got, err := s.FindActiveIntegration(ctx, "user-1", string(schema.IntegrationChat))
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "xoxb-new", got.AccessToken)
	assert.Equal(t, "#general", got.Config["channel"])

	_, err = s.FindActiveIntegration(ctx, "user-1", string(schema.IntegrationEmail))
	assert.True(t, schema.IsNotFound(err))

	list, err := s.ListIntegrations(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	fetched, err := s.GetIntegration(ctx, disabled.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)

	require.NoError(t, s.DeleteIntegration(ctx, disabled.ID))
	_, err = s.GetIntegration(ctx, disabled.ID)
	assert.True(t, schema.IsNotFound(err))
}
