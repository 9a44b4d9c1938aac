package expressions

import "context"

// Engine evaluates an expression against a workflow's data context.
// CEL guards connections; jq and expr power formatter steps.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
