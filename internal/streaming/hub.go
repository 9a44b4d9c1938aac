// Package streaming fans execution events out to in-process subscribers,
// such as the SSE endpoint.
package streaming

import (
	"context"
	"time"
)

// Event is a real-time notification emitted while an execution runs.
type Event struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	StepID      string    `json:"step_id,omitempty"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// Filter specifies which events a subscriber wants to receive. Empty fields
// match everything.
type Filter struct {
	ExecutionID string   `json:"execution_id,omitempty"`
	WorkflowID  string   `json:"workflow_id,omitempty"`
	Types       []string `json:"types,omitempty"`
}

// Hub provides pub/sub for execution events.
type Hub interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of matching events and a cancel func that
	// unsubscribes and closes the channel.
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}
