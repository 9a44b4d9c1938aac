// Package processors holds one handler per step blockType. A handler receives
// the step, the current execution context and the execution identity, and
// returns the delta that the engine merges into the context.
package processors

import (
	"context"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Input is the data provided to a processor at execution time.
type Input struct {
	Step        schema.StepDefinition
	Data        map[string]any
	WorkflowID  string
	ExecutionID string
	UserID      string
}

// Config returns the step config, never nil.
func (in Input) Config() map[string]any {
	if in.Step.Config == nil {
		return map[string]any{}
	}
	return in.Step.Config
}

// Processor executes one blockType.
type Processor interface {
	Name() string
	Description() string
	Process(ctx context.Context, in Input) (map[string]any, error)
}

// Func adapts a plain function to Processor.
type Func func(ctx context.Context, in Input) (map[string]any, error)

type funcProcessor struct {
	name string
	desc string
	fn   Func
}

// New wraps fn as a named Processor.
func New(name, description string, fn Func) Processor {
	return &funcProcessor{name: name, desc: description, fn: fn}
}

func (p *funcProcessor) Name() string        { return p.name }
func (p *funcProcessor) Description() string { return p.desc }

func (p *funcProcessor) Process(ctx context.Context, in Input) (map[string]any, error) {
	return p.fn(ctx, in)
}

// Info is a summary of a registered processor for listing.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AliasOf     string `json:"alias_of,omitempty"`
}
