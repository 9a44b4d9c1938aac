package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// TransitionHook is called before or after a state transition.
type TransitionHook func(from, to schema.ExecutionStatus) error

// ValidExecutionTransitions is the execution lifecycle table. Terminal
// states have no outgoing transitions.
var ValidExecutionTransitions = map[schema.ExecutionStatus][]schema.ExecutionStatus{
	schema.ExecutionPending: {schema.ExecutionRunning},
	schema.ExecutionRunning: {schema.ExecutionSuccess, schema.ExecutionFailed},
	schema.ExecutionSuccess: {},
	schema.ExecutionFailed:  {},
}

type hookKey struct {
	from, to schema.ExecutionStatus
}

// ExecutionFSM validates execution state transitions and publishes the
// matching lifecycle event.
type ExecutionFSM struct {
	mu     sync.Mutex
	hub    streaming.Hub
	before map[hookKey][]TransitionHook
	after  map[hookKey][]TransitionHook
}

// NewExecutionFSM creates an FSM. hub may be nil.
func NewExecutionFSM(hub streaming.Hub) *ExecutionFSM {
	return &ExecutionFSM{
		hub:    hub,
		before: make(map[hookKey][]TransitionHook),
		after:  make(map[hookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a transition.
func (f *ExecutionFSM) OnBefore(from, to schema.ExecutionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := hookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a transition.
func (f *ExecutionFSM) OnAfter(from, to schema.ExecutionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := hookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates from -> to, runs hooks and publishes the lifecycle
// event. The caller persists the new status.
func (f *ExecutionFSM) Transition(ctx context.Context, ex ExecutionRef, from, to schema.ExecutionStatus, payload any) error {
	if !CanTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeConflict,
			"invalid execution transition: %s -> %s", from, to).
			WithDetails(map[string]any{"execution_id": ex.ExecutionID, "from": string(from), "to": string(to)})
	}

	f.mu.Lock()
	key := hookKey{from, to}
	before := slices.Clone(f.before[key])
	after := slices.Clone(f.after[key])
	f.mu.Unlock()

	for _, hook := range before {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	if eventType := executionEventType(to); eventType != "" && f.hub != nil {
		// Best effort.
		_ = f.hub.Publish(context.WithoutCancel(ctx), streaming.Event{
			ExecutionID: ex.ExecutionID,
			WorkflowID:  ex.WorkflowID,
			Type:        eventType,
			Payload:     payload,
		})
	}

	for _, hook := range after {
		if err := hook(from, to); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionRef identifies an execution in events and errors.
type ExecutionRef struct {
	ExecutionID string
	WorkflowID  string
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to schema.ExecutionStatus) bool {
	return slices.Contains(ValidExecutionTransitions[from], to)
}

func executionEventType(to schema.ExecutionStatus) string {
	switch to {
	case schema.ExecutionRunning:
		return schema.EventExecutionStarted
	case schema.ExecutionSuccess:
		return schema.EventExecutionCompleted
	case schema.ExecutionFailed:
		return schema.EventExecutionFailed
	default:
		return ""
	}
}
