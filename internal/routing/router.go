// Package routing decides which outgoing connections of a completed step fire.
package routing

import (
	"context"
	"log/slog"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Router evaluates connection conditions against the execution context.
type Router struct {
	cel    *expressions.CELEngine
	logger *slog.Logger
}

// New creates a Router with its own CEL environment.
func New(logger *slog.Logger) (*Router, error) {
	engine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cel: engine, logger: logger}, nil
}

// ShouldFollow reports whether conn fires for the given context. A missing
// condition, an unknown operator, or a failing CEL expression all fire.
func (r *Router) ShouldFollow(ctx context.Context, conn schema.Connection, data map[string]any) bool {
	cond := conn.Condition
	if cond == nil {
		return true
	}
	if cond.Expression != "" {
		ok, err := r.cel.EvaluateBool(ctx, cond.Expression, data)
		if err != nil {
			r.logger.WarnContext(ctx, "connection expression failed; following edge",
				slog.String("from", conn.From),
				slog.String("to", conn.To),
				slog.String("error", err.Error()),
			)
			return true
		}
		return ok
	}

	actual := data[cond.Field]
	switch cond.Operator {
	case schema.OpEquals:
		return expressions.StrictEqual(actual, cond.Value)
	case schema.OpNotEquals:
		return !expressions.StrictEqual(actual, cond.Value)
	case schema.OpTrue:
		return expressions.Truthy(actual)
	case schema.OpFalse:
		return !expressions.Truthy(actual)
	default:
		return true
	}
}

// Next returns the targets of stepID's outgoing connections that fire, in
// definition order.
func (r *Router) Next(ctx context.Context, def *schema.WorkflowDefinition, stepID string, data map[string]any) []string {
	var next []string
	for _, conn := range def.Connections {
		if conn.From != stepID {
			continue
		}
		if r.ShouldFollow(ctx, conn, data) {
			next = append(next, conn.To)
		}
	}
	return next
}
