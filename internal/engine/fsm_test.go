package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

var testRef = ExecutionRef{ExecutionID: "ex-1", WorkflowID: "wf-1"}

func TestExecutionFSM_ValidTransitions(t *testing.T) {
	fsm := NewExecutionFSM(nil)
	ctx := context.Background()

	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionPending, schema.ExecutionRunning, nil))
	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionRunning, schema.ExecutionSuccess, nil))
	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionRunning, schema.ExecutionFailed, nil))
}

func TestExecutionFSM_InvalidTransition(t *testing.T) {
	fsm := NewExecutionFSM(nil)

	err := fsm.Transition(context.Background(), testRef, schema.ExecutionPending, schema.ExecutionSuccess, nil)
	require.Error(t, err)
	se, ok := schema.AsError(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeConflict, se.Code)
	assert.Equal(t, "ex-1", se.Details["execution_id"])
}

func TestExecutionFSM_TerminalStatesRejectTransitions(t *testing.T) {
	fsm := NewExecutionFSM(nil)
	for _, from := range []schema.ExecutionStatus{schema.ExecutionSuccess, schema.ExecutionFailed} {
		for _, to := range []schema.ExecutionStatus{schema.ExecutionPending, schema.ExecutionRunning, schema.ExecutionSuccess, schema.ExecutionFailed} {
			err := fsm.Transition(context.Background(), testRef, from, to, nil)
			assert.Error(t, err, "%s -> %s should be rejected", from, to)
		}
	}
}

func TestExecutionFSM_PublishesLifecycleEvents(t *testing.T) {
	hub := streaming.NewMemoryHub()
	fsm := NewExecutionFSM(hub)
	ch, cancel, err := hub.Subscribe(context.Background(), streaming.Filter{ExecutionID: "ex-1"})
	require.NoError(t, err)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionPending, schema.ExecutionRunning, nil))
	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionRunning, schema.ExecutionFailed, map[string]any{"error": "x"}))

	started := <-ch
	assert.Equal(t, schema.EventExecutionStarted, started.Type)
	assert.Equal(t, "wf-1", started.WorkflowID)
	failed := <-ch
	assert.Equal(t, schema.EventExecutionFailed, failed.Type)
	assert.Equal(t, map[string]any{"error": "x"}, failed.Payload)
}

func TestExecutionFSM_PublishesOnCancelledContext(t *testing.T) {
	hub := streaming.NewMemoryHub()
	fsm := NewExecutionFSM(hub)
	ch, cancel, err := hub.Subscribe(context.Background(), streaming.Filter{})
	require.NoError(t, err)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	stop()
	require.NoError(t, fsm.Transition(ctx, testRef, schema.ExecutionRunning, schema.ExecutionSuccess, nil))
	e := <-ch
	assert.Equal(t, schema.EventExecutionCompleted, e.Type)
}

func TestExecutionFSM_Hooks(t *testing.T) {
	fsm := NewExecutionFSM(nil)
	var calls []string
	fsm.OnBefore(schema.ExecutionRunning, schema.ExecutionSuccess, func(from, to schema.ExecutionStatus) error {
		calls = append(calls, "before:"+string(from)+"->"+string(to))
		return nil
	})
	fsm.OnAfter(schema.ExecutionRunning, schema.ExecutionSuccess, func(from, to schema.ExecutionStatus) error {
		calls = append(calls, "after")
		return nil
	})

	require.NoError(t, fsm.Transition(context.Background(), testRef, schema.ExecutionRunning, schema.ExecutionSuccess, nil))
	assert.Equal(t, []string{"before:RUNNING->SUCCESS", "after"}, calls)

	// Hooks are keyed by transition.
	require.NoError(t, fsm.Transition(context.Background(), testRef, schema.ExecutionRunning, schema.ExecutionFailed, nil))
	assert.Len(t, calls, 2)
}

func TestExecutionFSM_BeforeHookError(t *testing.T) {
	hub := streaming.NewMemoryHub()
	fsm := NewExecutionFSM(hub)
	ch, cancel, err := hub.Subscribe(context.Background(), streaming.Filter{})
	require.NoError(t, err)
	defer cancel()

	veto := errors.New("vetoed")
	fsm.OnBefore(schema.ExecutionPending, schema.ExecutionRunning, func(_, _ schema.ExecutionStatus) error { return veto })

	err = fsm.Transition(context.Background(), testRef, schema.ExecutionPending, schema.ExecutionRunning, nil)
	assert.ErrorIs(t, err, veto)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestExecutionFSM_ConcurrentTransitions(t *testing.T) {
	fsm := NewExecutionFSM(streaming.NewMemoryHub())
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fsm.OnAfter(schema.ExecutionPending, schema.ExecutionRunning, func(_, _ schema.ExecutionStatus) error { return nil })
			assert.NoError(t, fsm.Transition(context.Background(), testRef, schema.ExecutionPending, schema.ExecutionRunning, nil))
		}()
	}
	wg.Wait()
}

func TestValidExecutionTransitions_AllStatusesPresent(t *testing.T) {
	for _, s := range []schema.ExecutionStatus{schema.ExecutionPending, schema.ExecutionRunning, schema.ExecutionSuccess, schema.ExecutionFailed} {
		_, ok := ValidExecutionTransitions[s]
		assert.True(t, ok, "missing status %s", s)
	}
	assert.True(t, CanTransition(schema.ExecutionPending, schema.ExecutionRunning))
	assert.False(t, CanTransition(schema.ExecutionFailed, schema.ExecutionRunning))
}
